package report

import "sort"

// Stats is the derived, read-only summary for one category of rows. It is
// a pure function of the row collection; computing it twice over the same
// rows yields identical values.
type Stats struct {
	Total      int
	ByStatus   map[string]int
	ByAssignee map[string]int
	ByPriority map[string]int

	// Done counts rows whose status matches the done vocabulary;
	// InProgress the in-progress vocabulary; ToDo is the remainder.
	Done       int
	InProgress int
	ToDo       int

	// Points is the story-point sum over all rows, DonePoints over
	// done-like rows only. DonePoints is the sprint velocity when
	// computed over completed stories.
	Points     float64
	DonePoints float64
}

// Aggregate computes summary statistics for one category of rows.
func Aggregate(rows []Row) Stats {
	s := Stats{
		ByStatus:   make(map[string]int),
		ByAssignee: make(map[string]int),
		ByPriority: make(map[string]int),
	}

	for _, row := range rows {
		s.Total++
		s.ByStatus[row.Status]++
		s.ByAssignee[row.Assignee]++
		s.ByPriority[row.Priority]++
		s.Points += row.StoryPoints

		switch {
		case DoneLike(row.Status):
			s.Done++
			s.DonePoints += row.StoryPoints
		case InProgressLike(row.Status):
			s.InProgress++
		default:
			s.ToDo++
		}
	}

	return s
}

// CompletionRate is the percentage of rows with a done-like status. It is
// 0 for an empty category.
func (s Stats) CompletionRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Done) / float64(s.Total) * 100
}

// PointsCompletionRate is the percentage of story points carried by
// done-like rows. It is 0 when no points are assigned.
func (s Stats) PointsCompletionRate() float64 {
	if s.Points == 0 {
		return 0
	}
	return s.DonePoints / s.Points * 100
}

// Velocity is the story-point sum of completed rows.
func (s Stats) Velocity() float64 {
	return s.DonePoints
}

type labelCount struct {
	Label string
	Count int
}

// sortedCounts flattens a breakdown map into a stable slice ordered by
// descending count, then label, so rendered output never depends on map
// iteration order.
func sortedCounts(m map[string]int) []labelCount {
	out := make([]labelCount, 0, len(m))
	for k, v := range m {
		out = append(out, labelCount{Label: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}
