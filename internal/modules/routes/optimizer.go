package route

import (
	"context"
	"fmt"
	"sort"
	"time"

	"courier-assistant/internal/models"
	"courier-assistant/pkg/maps"

	"github.com/google/uuid"
)

// Optimizer computes a visiting order and timing for a day's stops. It is
// a pure computation over injected collaborators; persistence belongs to
// the caller.
type Optimizer struct {
	provider maps.DistanceTimeProvider
}

// NewOptimizer creates an optimizer backed by the given travel estimator.
func NewOptimizer(provider maps.DistanceTimeProvider) *Optimizer {
	return &Optimizer{provider: provider}
}

// PlanInput is everything one optimization run needs. Stops must all have
// resolved coordinates; filtering unroutable stops is the caller's job.
type PlanInput struct {
	UserID     string
	Date       time.Time
	Stops      []*models.Order
	Start      maps.Point
	StartTime  time.Time
	Settings   models.UserSettings
	Now        time.Time
	KeepManual bool
}

// Plan orders the stops greedily by nearest travel time from the current
// position and chains arrival times through service stops. Returned
// warnings are informational (delivery-window violations); they never
// change the ordering.
//
// Ties on travel time go to the stop with the earlier delivery-window end,
// then to the lower order number, so a fixed input always yields an
// identical route.
func (o *Optimizer) Plan(ctx context.Context, in PlanInput) (*models.RouteSnapshot, []string, error) {
	if len(in.Stops) == 0 {
		return nil, nil, models.ErrNoActiveOrders
	}

	remaining := make([]*models.Order, len(in.Stops))
	copy(remaining, in.Stops)
	sort.Slice(remaining, func(i, j int) bool {
		return remaining[i].OrderNumber < remaining[j].OrderNumber
	})

	var (
		warnings   []string
		points     []models.RoutePoint
		sequence   []string
		totalKm    float64
		pos        = in.Start
		departure  = in.StartTime
		serviceDur = time.Duration(in.Settings.StopServiceMinutes()) * time.Minute
		advance    = time.Duration(in.Settings.CallAdvanceMinutes) * time.Minute
	)

	for len(remaining) > 0 {
		bestIdx := -1
		var bestEst maps.Estimate
		for i, cand := range remaining {
			est, err := o.provider.Estimate(ctx, pos, maps.Point(cand.Coords()))
			if err != nil {
				return nil, nil, fmt.Errorf("%w: leg %s -> %s: %v",
					models.ErrOptimizationFailed, pos.Key(), cand.OrderNumber, err)
			}
			if bestIdx == -1 || est.Minutes < bestEst.Minutes ||
				(est.Minutes == bestEst.Minutes && tighterDeadline(cand, remaining[bestIdx])) {
				bestIdx, bestEst = i, est
			}
		}

		stop := remaining[bestIdx]
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)

		arrival := departure.Add(time.Duration(bestEst.Minutes * float64(time.Minute)))
		switch {
		case in.KeepManual && stop.IsManualArrival && stop.ManualArrival != nil:
			arrival = *stop.ManualArrival
		case stop.WindowStart != nil && arrival.Before(*stop.WindowStart):
			arrival = *stop.WindowStart
		}
		if stop.WindowEnd != nil && arrival.After(*stop.WindowEnd) {
			warnings = append(warnings, fmt.Sprintf(
				"order %s: estimated arrival %s is after the delivery window end %s",
				stop.OrderNumber, arrival.Format("15:04"), stop.WindowEnd.Format("15:04")))
		}

		callTime := arrival.Add(-advance)
		if callTime.Before(in.Now) {
			callTime = in.Now
		}

		points = append(points, models.RoutePoint{
			OrderNumber:      stop.OrderNumber,
			Address:          stop.Address,
			CustomerName:     stop.CustomerName,
			Phone:            stop.Phone,
			Comment:          stop.Comment,
			EstimatedArrival: arrival,
			CallTime:         callTime,
			DistanceFromPrev: bestEst.DistanceKm,
			TimeFromPrev:     bestEst.Minutes,
			ManualArrival:    in.KeepManual && stop.IsManualArrival,
		})
		sequence = append(sequence, stop.OrderNumber)
		totalKm += bestEst.DistanceKm

		departure = arrival.Add(serviceDur)
		pos = maps.Point(stop.Coords())
	}

	completion := departure
	return &models.RouteSnapshot{
		ID:                  uuid.New().String(),
		UserID:              in.UserID,
		RouteDate:           in.Date,
		Points:              points,
		OrderSequence:       sequence,
		TotalDistanceKm:     totalKm,
		TotalTimeMin:        completion.Sub(in.StartTime).Minutes(),
		EstimatedCompletion: completion,
		OptimizedAt:         in.Now,
	}, warnings, nil
}

// tighterDeadline reports whether a should win a travel-time tie against b.
// A stop with no declared window sorts after any stop with one.
func tighterDeadline(a, b *models.Order) bool {
	switch {
	case a.WindowEnd == nil && b.WindowEnd == nil:
		return a.OrderNumber < b.OrderNumber
	case a.WindowEnd == nil:
		return false
	case b.WindowEnd == nil:
		return true
	case a.WindowEnd.Equal(*b.WindowEnd):
		return a.OrderNumber < b.OrderNumber
	default:
		return a.WindowEnd.Before(*b.WindowEnd)
	}
}
