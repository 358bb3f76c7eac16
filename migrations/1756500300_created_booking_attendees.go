package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		bookings, err := app.FindCollectionByNameOrId("bookings")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("booking_attendees")

		collection.Fields.Add(
			&core.RelationField{
				Name:         "booking_id",
				CollectionId: bookings.Id,
				Required:     true,
				MaxSelect:    1,
				// No cascade delete: failed-attempt cleanup is the
				// orchestrator's job and runs in compensation order.
			},
			&core.TextField{Name: "name", Required: true, Max: 120},
			&core.EmailField{Name: "email"},
			&core.TextField{Name: "phone", Max: 30},
			&core.TextField{Name: "dob", Max: 10},
			&core.TextField{Name: "qr_code", Required: true, Max: 255},
			&core.DateField{Name: "qr_generated_at"},
			&core.BoolField{Name: "checked_in"},
			&core.DateField{Name: "checked_in_at"},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		// Tokens are unique system-wide; the validator looks rows up by token.
		collection.AddIndex("idx_attendees_qr_code", true, "qr_code", "")
		collection.AddIndex("idx_attendees_booking", false, "booking_id", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("booking_attendees")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
