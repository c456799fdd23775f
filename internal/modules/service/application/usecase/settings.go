package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"tableside/internal/modules/service/domain"
	"tableside/internal/platform/docstore"
	"tableside/internal/shared/normalization"
)

// Settings applies manager configuration of a restaurant: profile, menu, request types and promotions.
type Settings struct {
	store docstore.Store
	newID func() string
}

func NewSettings(store docstore.Store) *Settings {
	return &Settings{store: store, newID: uuid.NewString}
}

// SaveRestaurant creates the restaurant profile on first use and updates it afterwards.
// The calling manager is always listed in managerIds. The boolean reports a creation.
func (s *Settings) SaveRestaurant(ctx context.Context, restaurantID, managerID string, cmd domain.UpdateRestaurantCommand) (domain.Restaurant, bool, error) {
	name, err := domain.RequireText("name", cmd.Name)
	if err != nil {
		return domain.Restaurant{}, false, err
	}
	restaurant, err := loadRestaurant(ctx, s.store, restaurantID)
	created := errors.Is(err, domain.ErrNotFound)
	switch {
	case created:
		restaurant = domain.Restaurant{ID: strings.TrimSpace(restaurantID)}
	case err != nil:
		return domain.Restaurant{}, false, err
	}
	restaurant.Name = name
	restaurant.MenuLink = normalization.AsString(cmd.MenuLink)
	if managerID = strings.TrimSpace(managerID); managerID != "" && !slices.Contains(restaurant.ManagerIDs, managerID) {
		restaurant.ManagerIDs = append(restaurant.ManagerIDs, managerID)
	}
	if err := s.store.Write(ctx, docstore.Path{Collection: normalization.CollectionRestaurants, ID: restaurant.ID}, restaurant.Fields(), true); err != nil {
		return domain.Restaurant{}, false, fmt.Errorf("save restaurant: %w", err)
	}
	if created {
		slog.Info("restaurant created", slog.String("restaurantId", restaurant.ID), slog.String("managerId", managerID))
	}
	return restaurant, created, nil
}

func (s *Settings) AddMenuItem(ctx context.Context, restaurantID string, cmd domain.AddMenuItemCommand) (domain.MenuItem, error) {
	name, err := domain.RequireText("name", cmd.Name)
	if err != nil {
		return domain.MenuItem{}, err
	}
	price, err := domain.ParsePrice(priceText(cmd.Price))
	if err != nil {
		return domain.MenuItem{}, err
	}
	if _, err := loadRestaurant(ctx, s.store, restaurantID); err != nil {
		return domain.MenuItem{}, err
	}
	item := domain.MenuItem{
		ID:           s.newID(),
		RestaurantID: restaurantID,
		Name:         name,
		Description:  normalization.AsString(cmd.Description),
		Category:     normalization.AsString(cmd.Category),
		Price:        price,
		Available:    cmd.Available == nil || *cmd.Available,
	}
	if err := s.create(ctx, normalization.CollectionMenuItems, item.ID, item.Fields()); err != nil {
		return domain.MenuItem{}, err
	}
	return item, nil
}

func (s *Settings) AddRequestType(ctx context.Context, restaurantID string, cmd domain.AddRequestTypeCommand) (domain.RequestTemplate, error) {
	label, err := domain.RequireText("label", cmd.Label)
	if err != nil {
		return domain.RequestTemplate{}, err
	}
	if _, err := loadRestaurant(ctx, s.store, restaurantID); err != nil {
		return domain.RequestTemplate{}, err
	}
	tmpl := domain.RequestTemplate{ID: s.newID(), RestaurantID: restaurantID, Label: label, Special: cmd.Special}
	if err := s.create(ctx, normalization.CollectionRequestTypes, tmpl.ID, tmpl.Fields()); err != nil {
		return domain.RequestTemplate{}, err
	}
	return tmpl, nil
}

func (s *Settings) AddPromotion(ctx context.Context, restaurantID string, cmd domain.AddPromotionCommand) (domain.Promotion, error) {
	title, err := domain.RequireText("title", cmd.Title)
	if err != nil {
		return domain.Promotion{}, err
	}
	if !cmd.StartsAt.IsZero() && !cmd.EndsAt.IsZero() && !cmd.EndsAt.After(cmd.StartsAt) {
		return domain.Promotion{}, fmt.Errorf("%w: promotion must end after it starts", domain.ErrValidation)
	}
	days, err := domain.ParseDays(cmd.Days)
	if err != nil {
		return domain.Promotion{}, err
	}
	if _, err := loadRestaurant(ctx, s.store, restaurantID); err != nil {
		return domain.Promotion{}, err
	}
	promo := domain.Promotion{
		ID:           s.newID(),
		RestaurantID: restaurantID,
		Title:        title,
		Description:  normalization.AsString(cmd.Description),
		Active:       cmd.Active == nil || *cmd.Active,
		StartsAt:     utc(cmd.StartsAt),
		EndsAt:       utc(cmd.EndsAt),
		Days:         days,
	}
	if err := s.create(ctx, normalization.CollectionPromotions, promo.ID, promo.Fields()); err != nil {
		return domain.Promotion{}, err
	}
	return promo, nil
}

func (s *Settings) DeleteMenuItem(ctx context.Context, restaurantID, id string) error {
	return s.deleteOwned(ctx, normalization.CollectionMenuItems, restaurantID, id)
}

func (s *Settings) DeleteRequestType(ctx context.Context, restaurantID, id string) error {
	return s.deleteOwned(ctx, normalization.CollectionRequestTypes, restaurantID, id)
}

func (s *Settings) DeletePromotion(ctx context.Context, restaurantID, id string) error {
	return s.deleteOwned(ctx, normalization.CollectionPromotions, restaurantID, id)
}

func (s *Settings) create(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := s.store.Write(ctx, docstore.Path{Collection: collection, ID: id}, fields, false); err != nil {
		return fmt.Errorf("create %s: %w", collection, err)
	}
	slog.Info("settings record created", slog.String("collection", collection), slog.String("id", id), slog.Any("restaurantId", fields[domain.FieldRestaurantID]))
	return nil
}

// deleteOwned refuses to touch records of another restaurant and reports them as missing.
func (s *Settings) deleteOwned(ctx context.Context, collection, restaurantID, id string) error {
	path := docstore.Path{Collection: collection, ID: id}
	if !path.Valid() {
		return fmt.Errorf("%w: id is required", domain.ErrValidation)
	}
	doc, err := s.store.Get(ctx, path)
	if errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, path)
	}
	if err != nil {
		return fmt.Errorf("delete %s: %w", collection, err)
	}
	if normalization.AsString(doc.Data[domain.FieldRestaurantID]) != restaurantID {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, path)
	}
	if err := s.store.Delete(ctx, path); err != nil {
		return fmt.Errorf("delete %s: %w", collection, err)
	}
	return nil
}

func priceText(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func utc(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
