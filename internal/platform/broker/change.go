package broker

import (
	"strconv"
	"strings"
	"time"

	"tableside/internal/modules/realtime/domain"
	service "tableside/internal/modules/service/domain"
	"tableside/internal/platform/docstore"
	"tableside/internal/shared/normalization"
)

// MessageFromChange describes a store mutation as a change-feed message with topic
// "<collection>.<updated|deleted>".
func MessageFromChange(change docstore.Change, at time.Time) *domain.Message {
	entity := normalization.NormalizeCollection(change.Path.Collection)
	if entity == "" {
		entity = strings.TrimSpace(change.Path.Collection)
	}
	action := domain.ActionUpdated
	if change.Kind == docstore.OpDelete || change.Kind == docstore.OpDeleteWhere {
		action = domain.ActionDeleted
	}
	msg := &domain.Message{
		Topic:      domain.CustomTopic(entity, action),
		Entity:     entity,
		Action:     action,
		ResourceID: change.Path.ID,
		Data:       change.Data,
		Timestamp:  at.UTC(),
	}
	msg.WithMeta(domain.MetaRestaurantID, normalization.AsString(change.Data["restaurantId"]))
	if n, err := service.TableNumberOf(change.Data); err == nil {
		msg.WithMeta(domain.MetaTableNumber, strconv.Itoa(n))
	}
	return msg
}
