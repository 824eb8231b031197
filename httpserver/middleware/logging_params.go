/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"sync"
	"time"

	"github.com/ssgreg/logf"

	"github.com/mjsoltani/peyvandyar/log"
)

type loggableIntMap map[string]int64

func (lm loggableIntMap) EncodeLogfObject(e logf.FieldEncoder) error {
	for key, value := range lm {
		e.EncodeFieldInt64(key, value)
	}
	return nil
}

// LoggingParams stores parameters for the Logging middleware
// that may be modified dynamically by the underlying handlers.
// Upstream calls made on behalf of the request add their durations here as time slots.
type LoggingParams struct {
	mu        sync.Mutex
	fields    []log.Field
	timeSlots loggableIntMap
}

// ExtendFields extends list of fields that will be logged by the Logging middleware.
func (lp *LoggingParams) ExtendFields(fields ...log.Field) {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	lp.fields = append(lp.fields, fields...)
}

// AddTimeSlotInt adds value to the element of the time_slots map (sets it if new).
func (lp *LoggingParams) AddTimeSlotInt(name string, dur int64) {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	if lp.timeSlots == nil {
		lp.timeSlots = make(loggableIntMap, 1)
	}
	lp.timeSlots[name] += dur
}

// AddTimeSlotDurationInMs adds duration in milliseconds to the element of the time_slots map (sets it if new).
func (lp *LoggingParams) AddTimeSlotDurationInMs(name string, dur time.Duration) {
	lp.AddTimeSlotInt(name, dur.Milliseconds())
}

// TimeSlots returns a copy of accumulated time slots in milliseconds.
func (lp *LoggingParams) TimeSlots() map[string]int64 {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	res := make(map[string]int64, len(lp.timeSlots))
	for k, v := range lp.timeSlots {
		res[k] = v
	}
	return res
}

// logFields returns extra fields and, if withTimeSlots is set and there are any, the time_slots group.
func (lp *LoggingParams) logFields(withTimeSlots bool) []log.Field {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	fields := append([]log.Field(nil), lp.fields...)
	if withTimeSlots && len(lp.timeSlots) != 0 {
		slots := make(loggableIntMap, len(lp.timeSlots))
		for k, v := range lp.timeSlots {
			slots[k] = v
		}
		fields = append(fields, log.Field{Key: "time_slots", Type: logf.FieldTypeObject, Any: slots})
	}
	return fields
}
