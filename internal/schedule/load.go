package schedule

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type file struct {
	Days   map[string][]Subject `yaml:"days"`
	Colors map[string]string    `yaml:"colors"`
}

// Load reads a catalog from a yaml file:
//
//	days:
//	  Monday:
//	    - name: DIVP
//	      sessions: 1
//	      time: 01:00 – 02:00 PM
//	colors:
//	  DIVP: "#3B82F6"
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schedule: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse schedule: %w", err)
	}
	days := make(map[time.Weekday][]Subject, len(f.Days))
	for name, subjects := range f.Days {
		day, ok := parseWeekday(name)
		if !ok {
			return nil, fmt.Errorf("%q: unknown weekday", name)
		}
		for _, subject := range subjects {
			if subject.Name == "" {
				return nil, fmt.Errorf("%s: subject name is empty", name)
			}
			if subject.Sessions < 1 {
				return nil, fmt.Errorf("%s: %q: sessions must be at least 1, got %d", name, subject.Name, subject.Sessions)
			}
		}
		days[day] = subjects
	}
	return newCatalog(days, f.Colors), nil
}
