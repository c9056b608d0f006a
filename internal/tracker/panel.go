package tracker

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/signalsfoundry/ambulance-tracker/model"
)

// InfoPanel projects the entity list into the label lines shown under the
// map. Labels are the placeholders set at creation.
func InfoPanel(entities []model.TrackedEntity) []string {
	lines := make([]string, 0, 2*len(entities))
	for _, e := range entities {
		lines = append(lines,
			fmt.Sprintf("Ambulance %d ETA: %s", e.ID, e.ETALabel),
			fmt.Sprintf("Distance: %s", e.DistanceLabel),
		)
	}
	return lines
}

// MarkerIDPlaceholder in a marker title is replaced by the entity ID.
const MarkerIDPlaceholder = "{id}"

// Markers builds one descriptor per entity, in entity order.
func Markers(entities []model.TrackedEntity, title, description string) []model.MarkerDescriptor {
	out := make([]model.MarkerDescriptor, len(entities))
	for i, e := range entities {
		out[i] = model.MarkerDescriptor{
			ID:          e.ID,
			Coordinate:  e.Position,
			Title:       strings.ReplaceAll(title, MarkerIDPlaceholder, strconv.Itoa(e.ID)),
			Description: description,
		}
	}
	return out
}
