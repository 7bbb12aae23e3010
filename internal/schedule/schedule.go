package schedule

import (
	"slices"
	"time"
)

// FallbackColor is used for subjects missing from the color table.
const FallbackColor = "#6B7280"

type Subject struct {
	Name     string `yaml:"name" json:"name"`
	Sessions int    `yaml:"sessions" json:"sessions"`
	// Time is a display string, e.g. "01:00 – 02:00 PM"
	Time string `yaml:"time" json:"time"`
}

// Weekdays is the canonical iteration order of the catalog.
var Weekdays = []time.Weekday{
	time.Monday,
	time.Tuesday,
	time.Wednesday,
	time.Thursday,
	time.Friday,
	time.Saturday,
}

type Catalog struct {
	days     map[time.Weekday][]Subject
	colors   map[string]string
	subjects []string
}

func newCatalog(days map[time.Weekday][]Subject, colors map[string]string) *Catalog {
	c := &Catalog{
		days:   make(map[time.Weekday][]Subject, len(days)),
		colors: make(map[string]string, len(colors)),
	}
	for day, subjects := range days {
		c.days[day] = slices.Clone(subjects)
	}
	for name, color := range colors {
		c.colors[name] = color
	}
	seen := map[string]bool{}
	for _, day := range Weekdays {
		for _, subject := range c.days[day] {
			if seen[subject.Name] {
				continue
			}
			seen[subject.Name] = true
			c.subjects = append(c.subjects, subject.Name)
		}
	}
	return c
}

// ScheduleFor returns subjects of the day in the order they take place.
func (c *Catalog) ScheduleFor(day time.Weekday) []Subject {
	return slices.Clone(c.days[day])
}

func (c *Catalog) ScheduleForName(name string) []Subject {
	day, ok := parseWeekday(name)
	if !ok {
		return []Subject{}
	}
	return c.ScheduleFor(day)
}

func (c *Catalog) AllSubjects() []string {
	return slices.Clone(c.subjects)
}

func (c *Catalog) HasSubject(name string) bool {
	return slices.Contains(c.subjects, name)
}

func (c *Catalog) ColorFor(subject string) string {
	if color, ok := c.colors[subject]; ok {
		return color
	}
	return FallbackColor
}

func parseWeekday(name string) (time.Weekday, bool) {
	for day := time.Sunday; day <= time.Saturday; day++ {
		if day.String() == name {
			return day, true
		}
	}
	return time.Sunday, false
}

func Default() *Catalog {
	return newCatalog(defaultDays, defaultColors)
}

var defaultDays = map[time.Weekday][]Subject{
	time.Monday: {
		{Name: "DIVP", Sessions: 1, Time: "01:00 – 02:00 PM"},
		{Name: "SOOAD", Sessions: 1, Time: "02:00 – 03:00 PM"},
		{Name: "AI", Sessions: 1, Time: "03:00 – 04:00 PM"},
	},
	time.Tuesday: {
		{Name: "AI", Sessions: 1, Time: "02:00 – 03:00 PM"},
		{Name: "PS", Sessions: 1, Time: "03:00 – 04:00 PM"},
		{Name: "DIVP Lab", Sessions: 2, Time: "04:15 – 06:15 PM"},
	},
	time.Wednesday: {
		{Name: "DIVP", Sessions: 1, Time: "02:00 – 03:00 PM"},
		{Name: "AI", Sessions: 1, Time: "03:00 – 04:00 PM"},
		{Name: "PPL Lab", Sessions: 2, Time: "04:15 – 06:15 PM"},
	},
	time.Thursday: {
		{Name: "DIVP", Sessions: 1, Time: "01:00 – 02:00 PM"},
		{Name: "PS", Sessions: 1, Time: "02:00 – 03:00 PM"},
		{Name: "CD", Sessions: 1, Time: "03:00 – 04:00 PM"},
	},
	time.Friday: {
		{Name: "DIVP", Sessions: 1, Time: "01:00 – 02:00 PM"},
		{Name: "SOOAD", Sessions: 1, Time: "02:00 – 03:00 PM"},
		{Name: "CD", Sessions: 1, Time: "03:00 – 04:00 PM"},
		{Name: "PPL Lab", Sessions: 2, Time: "04:15 – 06:15 PM"},
	},
	time.Saturday: {
		{Name: "SOOAD", Sessions: 1, Time: "01:00 – 02:00 PM"},
		{Name: "PS", Sessions: 1, Time: "02:00 – 03:00 PM"},
		{Name: "CD", Sessions: 1, Time: "03:00 – 04:00 PM"},
		{Name: "DIVP Lab", Sessions: 2, Time: "04:15 – 06:15 PM"},
	},
}

var defaultColors = map[string]string{
	"DIVP":     "#3B82F6",
	"SOOAD":    "#10B981",
	"AI":       "#8B5CF6",
	"PS":       "#F59E0B",
	"CD":       "#EF4444",
	"PPL Lab":  "#06B6D4",
	"DIVP Lab": "#84CC16",
}
