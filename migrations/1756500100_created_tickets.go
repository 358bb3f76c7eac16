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

		collection := core.NewBaseCollection("tickets")

		collection.Fields.Add(
			&core.RelationField{
				Name:         "event_id",
				CollectionId: events.Id,
				Required:     true,
				MaxSelect:    1,
			},
			&core.TextField{Name: "ticket_name", Required: true, Max: 100},
			&core.NumberField{Name: "price", Min: numberMin},
			&core.NumberField{Name: "quantity", Min: numberMin, OnlyInt: true},
			&core.NumberField{Name: "per_user_limit", Min: numberMin, OnlyInt: true},
			&core.NumberField{Name: "sold", Min: numberMin, OnlyInt: true},
			&core.NumberField{Name: "reserved", Min: numberMin, OnlyInt: true},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		collection.AddIndex("idx_tickets_event", false, "event_id", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("tickets")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
