package scraper

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"gradex/internal/model"
)

// ParseMarks extracts the per-subject tuples from the marks container's
// HTML. The container holds one child div per row; the first is the
// header and every data row carries six cell divs in order: code, name,
// internal, external, total, result. Rows come back sorted ascending by
// subject code.
func ParseMarks(html string) ([]model.SubjectMark, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse marks html: %w", err)
	}

	var marks []model.SubjectMark
	var parseErr error

	doc.Find("body > div > div").EachWithBreak(func(i int, row *goquery.Selection) bool {
		if i == 0 {
			// header row
			return true
		}
		cells := row.ChildrenFiltered("div")
		if cells.Length() < 6 {
			parseErr = fmt.Errorf("marks row %d has %d cells, want 6", i, cells.Length())
			return false
		}

		text := func(j int) string {
			return strings.TrimSpace(cells.Eq(j).Text())
		}
		internal, err := strconv.Atoi(text(2))
		if err != nil {
			parseErr = fmt.Errorf("marks row %d internal: %w", i, err)
			return false
		}
		external, err := strconv.Atoi(text(3))
		if err != nil {
			parseErr = fmt.Errorf("marks row %d external: %w", i, err)
			return false
		}
		total, err := strconv.Atoi(text(4))
		if err != nil {
			parseErr = fmt.Errorf("marks row %d total: %w", i, err)
			return false
		}

		marks = append(marks, model.SubjectMark{
			SubCode:  text(0),
			SubName:  text(1),
			Internal: internal,
			External: external,
			Total:    total,
			Result:   text(5),
		})
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	if len(marks) == 0 {
		return nil, fmt.Errorf("marks container has no data rows")
	}

	sort.SliceStable(marks, func(a, b int) bool {
		return marks[a].SubCode < marks[b].SubCode
	})
	return marks, nil
}
