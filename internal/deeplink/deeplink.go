// Package deeplink extracts test, attempt and lesson ids from the links
// handed to the CLI. Ids may sit in the query string or in the fragment
// (`#/take?testId=5` or `#testId=5`); the query wins when both carry one.
package deeplink

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Link holds the ids found in a deep link. Zero means absent.
type Link struct {
	TestID    int64
	AttemptID int64
	LessonID  int64
}

var keys = map[string][]string{
	"test":    {"testId", "mockTestId", "test_id"},
	"attempt": {"attemptId", "mockAttemptId", "attempt_id"},
	"lesson":  {"lessonId", "lesson_id"},
}

// Parse reads a Link from raw.
func Parse(raw string) (Link, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Link{}, fmt.Errorf("parse link: %w", err)
	}

	fragment, err := fragmentValues(u.Fragment)
	if err != nil {
		return Link{}, fmt.Errorf("parse link fragment: %w", err)
	}
	sources := []url.Values{u.Query(), fragment}

	var link Link
	if link.TestID, err = lookup(sources, keys["test"]); err != nil {
		return Link{}, err
	}
	if link.AttemptID, err = lookup(sources, keys["attempt"]); err != nil {
		return Link{}, err
	}
	if link.LessonID, err = lookup(sources, keys["lesson"]); err != nil {
		return Link{}, err
	}
	return link, nil
}

// Empty reports whether no id was found.
func (l Link) Empty() bool {
	return l.TestID == 0 && l.AttemptID == 0 && l.LessonID == 0
}

func fragmentValues(fragment string) (url.Values, error) {
	if fragment == "" {
		return url.Values{}, nil
	}
	if i := strings.IndexByte(fragment, '?'); i >= 0 {
		fragment = fragment[i+1:]
	} else if strings.HasPrefix(fragment, "/") {
		return url.Values{}, nil
	}
	return url.ParseQuery(fragment)
}

func lookup(sources []url.Values, names []string) (int64, error) {
	for _, values := range sources {
		for _, name := range names {
			v := values.Get(name)
			if v == "" {
				continue
			}
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil || id <= 0 {
				return 0, fmt.Errorf("invalid %s %q", name, v)
			}
			return id, nil
		}
	}
	return 0, nil
}
