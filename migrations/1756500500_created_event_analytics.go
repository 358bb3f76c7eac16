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

		collection := core.NewBaseCollection("event_analytics")

		collection.Fields.Add(
			&core.RelationField{
				Name:         "event_id",
				CollectionId: events.Id,
				Required:     true,
				MaxSelect:    1,
			},
			&core.NumberField{Name: "total_views", Min: numberMin, OnlyInt: true},
			&core.NumberField{Name: "total_bookings", Min: numberMin, OnlyInt: true},
			&core.NumberField{Name: "total_revenue", Min: numberMin},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		collection.AddIndex("idx_analytics_event", true, "event_id", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("event_analytics")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
