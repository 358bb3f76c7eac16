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
		tickets, err := app.FindCollectionByNameOrId("tickets")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("bookings")

		collection.Fields.Add(
			&core.RelationField{
				Name:         "event_id",
				CollectionId: events.Id,
				Required:     true,
				MaxSelect:    1,
			},
			&core.TextField{Name: "user_id", Required: true, Max: 64},
			&core.RelationField{
				Name:         "ticket_id",
				CollectionId: tickets.Id,
				Required:     true,
				MaxSelect:    1,
			},
			&core.NumberField{Name: "quantity", Min: numberMin, OnlyInt: true},
			&core.NumberField{Name: "total_amount", Min: numberMin},
			&core.SelectField{
				Name:      "booking_status",
				MaxSelect: 1,
				Values:    []string{"pending", "confirmed", "failed"},
			},
			&core.TextField{Name: "booking_reference", Required: true, Max: 40},
			&core.SelectField{
				Name:      "email_status",
				MaxSelect: 1,
				Values:    []string{"pending", "sent", "failed"},
			},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		// The reference is the purchaser-facing identity of a booking; it must
		// be unique so collision retries in the orchestrator can rely on it.
		collection.AddIndex("idx_bookings_reference", true, "booking_reference", "")
		collection.AddIndex("idx_bookings_user", false, "user_id", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("bookings")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
