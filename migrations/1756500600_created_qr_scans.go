package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		attendees, err := app.FindCollectionByNameOrId("booking_attendees")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("qr_scans")

		collection.Fields.Add(
			// Optional relation: a scan of an unknown token still gets logged,
			// with no attendee to point at.
			&core.RelationField{
				Name:         "booking_attendee_id",
				CollectionId: attendees.Id,
				MaxSelect:    1,
			},
			&core.TextField{Name: "scanned_by", Required: true, Max: 64},
			&core.DateField{Name: "scanned_at", Required: true},
			&core.BoolField{Name: "valid"},
			&core.TextField{Name: "reason", Max: 120},
			&core.AutodateField{Name: "created", OnCreate: true},
		)

		collection.AddIndex("idx_scans_attendee", false, "booking_attendee_id", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("qr_scans")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
