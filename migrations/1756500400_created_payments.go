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

		collection := core.NewBaseCollection("payments")

		collection.Fields.Add(
			&core.RelationField{
				Name:         "booking_id",
				CollectionId: bookings.Id,
				Required:     true,
				MaxSelect:    1,
			},
			&core.TextField{Name: "transaction_id", Required: true, Max: 40},
			&core.TextField{Name: "payment_gateway", Max: 40},
			&core.NumberField{Name: "amount", Min: numberMin},
			&core.TextField{Name: "currency", Max: 3},
			&core.SelectField{
				Name:      "payment_status",
				MaxSelect: 1,
				Values:    []string{"success", "refunded"},
			},
			&core.AutodateField{Name: "created", OnCreate: true},
		)

		collection.AddIndex("idx_payments_booking", true, "booking_id", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("payments")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
