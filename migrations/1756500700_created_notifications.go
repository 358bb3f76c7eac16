package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		events, err := app.FindCollectionByNameOrId("events")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("notifications")

		collection.Fields.Add(
			&core.TextField{Name: "user_id", Required: true, Max: 64},
			&core.RelationField{
				Name:         "event_id",
				CollectionId: events.Id,
				MaxSelect:    1,
			},
			&core.TextField{Name: "type", Required: true, Max: 60},
			&core.TextField{Name: "message", Max: 500},
			&core.BoolField{Name: "read"},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		collection.AddIndex("idx_notifications_user", false, "user_id", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("notifications")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
