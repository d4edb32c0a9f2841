package listing

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Tables splits a document's tables into the ones still open and the ones
// under a collapsible "Inactive roles" section, each in document order.
type Tables struct {
	Active   []*goquery.Selection
	Inactive []*goquery.Selection
}

func (t Tables) Count() int { return len(t.Active) + len(t.Inactive) }

func ExtractTables(doc *goquery.Document) Tables {
	var t Tables
	doc.Find("table").Each(func(_ int, tbl *goquery.Selection) {
		if insideInactiveSection(tbl) {
			t.Inactive = append(t.Inactive, tbl)
			return
		}
		t.Active = append(t.Active, tbl)
	})
	return t
}

func ExtractTablesHTML(html string) (Tables, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Tables{}, err
	}
	return ExtractTables(doc), nil
}

func insideInactiveSection(tbl *goquery.Selection) bool {
	inactive := false
	tbl.ParentsFiltered("details").EachWithBreak(func(_ int, d *goquery.Selection) bool {
		label := d.ChildrenFiltered("summary").First().Text()
		if strings.Contains(strings.ToLower(label), "inactive roles") {
			inactive = true
			return false
		}
		return true
	})
	return inactive
}
