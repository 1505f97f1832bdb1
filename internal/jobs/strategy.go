package jobs

import "ltgsite/internal/backend"

// ColumnMapping names the columns that differ between the two schema shapes
// found in deployed databases. Columns not listed here are shared.
type ColumnMapping struct {
	Name      string
	Hours     string
	Location  string
	Benefits  string
	Published string
}

var (
	// Primary is the current schema.
	Primary = ColumnMapping{
		Name:      "primary",
		Hours:     "hours_per_week",
		Location:  "location",
		Benefits:  "we_offer",
		Published: "is_published",
	}
	// Legacy is the schema of older deployments.
	Legacy = ColumnMapping{
		Name:      "legacy",
		Hours:     "hours",
		Location:  "region",
		Benefits:  "benefits",
		Published: "published",
	}

	// Mappings lists the strategies in the order writes try them.
	Mappings = []ColumnMapping{Primary, Legacy}

	// IDColumns lists the identifier columns in the order writes try them.
	IDColumns = []string{"id", "job_id"}

	// PublishedColumns lists the flags the public listing filters on.
	PublishedColumns = []string{Primary.Published, Legacy.Published}
)

// Row renders a patch in this mapping's column names. Empty hours and preview
// are stored as NULL.
func (m ColumnMapping) Row(p Patch) backend.Row {
	row := backend.Row{}
	setText := func(col string, v *string) {
		if v != nil {
			row[col] = *v
		}
	}
	setNullable := func(col string, v *string) {
		if v == nil {
			return
		}
		if *v == "" {
			row[col] = nil
			return
		}
		row[col] = *v
	}

	setText("title", p.Title)
	setText("type", p.Type)
	setNullable(m.Hours, p.Hours)
	setText(m.Location, p.Location)
	setText("tasks", p.Tasks)
	setText("requirements", p.Requirements)
	setText(m.Benefits, p.Benefits)
	setText("contact", p.Contact)
	if p.Published != nil {
		row[m.Published] = *p.Published
	}
	setNullable("preview", p.Preview)
	return row
}
