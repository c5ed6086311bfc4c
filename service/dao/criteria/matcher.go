// Package criteria implements parameter matching shared by DAO List
// implementations.
package criteria

import (
	"github.com/justy6674/comply/service/dao"
)

// Matches reports whether an entity satisfies every supplied parameter.
// The field function maps a parameter name to the entity's value for it;
// unknown parameter names match everything so stores stay forward
// compatible with new filters.
func Matches(parameters []*dao.Parameter, field func(name string) (value string, known bool)) bool {
	for _, parameter := range parameters {
		if parameter == nil {
			continue
		}
		actual, known := field(parameter.Name)
		if !known {
			continue
		}
		switch expect := parameter.Value.(type) {
		case string:
			if actual != expect {
				return false
			}
		case []string:
			if len(expect) == 0 {
				continue
			}
			var matched bool
			for _, candidate := range expect {
				if actual == candidate {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
		}
	}
	return true
}
