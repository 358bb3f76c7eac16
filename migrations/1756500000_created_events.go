package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("events")

		collection.Fields.Add(
			&core.TextField{Name: "title", Required: true, Max: 255},
			&core.EditorField{Name: "description"},
			&core.TextField{Name: "location", Max: 255},
			&core.TextField{Name: "category", Max: 100},
			&core.DateField{Name: "event_date", Required: true},
			&core.TextField{Name: "event_time", Max: 20},
			&core.TextField{Name: "organizer_id", Max: 64},
			&core.SelectField{
				Name:      "status",
				MaxSelect: 1,
				Values:    []string{"draft", "published", "cancelled", "completed"},
			},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("events")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}

// numberMin is shared by tier/counter migrations that floor fields at zero.
var numberMin = types.Pointer(0.0)
