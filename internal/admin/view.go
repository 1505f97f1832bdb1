package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"ltgsite/internal/jobs"
	"ltgsite/internal/preview"
)

const (
	bannerUnsaved   = "Ungespeicherte Änderungen – bitte speichern oder zurücksetzen."
	bannerPublished = "Achtung: Du bearbeitest gerade einen veröffentlichten Job. Speichere, um die veröffentlichten Daten zu aktualisieren – oder setze ihn auf Entwurf."

	ListLoadFailed = "Jobs konnten nicht geladen werden (DB/Policy)."
	ListEmpty      = "Noch keine Jobs gespeichert."
)

// View is everything the form area displays.
type View struct {
	Form            Form   `json:"form"`
	State           State  `json:"state"`
	EditingID       string `json:"editing_id,omitempty"`
	FreeRoleEnabled bool   `json:"free_role_enabled"`
	Preview         string `json:"preview"`
	Banner          string `json:"banner,omitempty"`
	SaveLabel       string `json:"save_label"`
}

// View renders the current form state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		Form:            c.form,
		State:           c.state,
		EditingID:       c.editingID,
		FreeRoleEnabled: c.form.FreeRoleEnabled(),
		Preview:         preview.Build(c.form.Fields()),
	}
	dirty := c.state == StateDirty
	if dirty {
		v.Banner = bannerUnsaved
		if c.form.Published {
			v.Banner = bannerPublished
		}
	}
	v.SaveLabel = "Job speichern"
	if c.editingID != "" {
		v.SaveLabel = "Änderungen speichern"
	}
	if dirty {
		v.SaveLabel += " *"
	}
	return v
}

// ListItem is one rendered row of the job list.
type ListItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Meta        string `json:"meta"`
	Published   bool   `json:"published"`
	ToggleLabel string `json:"toggle_label"`
}

// ListView is the job list, or an inline message instead of it.
type ListView struct {
	Items   []ListItem `json:"items"`
	Message string     `json:"message,omitempty"`
	Failed  bool       `json:"failed,omitempty"`
}

// NewListItem renders one posting for the admin list.
func NewListItem(p jobs.Posting) ListItem {
	title := p.Title
	if title == "" {
		title = "(Ohne Titel)"
	}
	status := "⏸️ Entwurf"
	toggle := "Veröffentlichen"
	if p.Published {
		status = "✅ veröffentlicht"
		toggle = "Deaktivieren"
	}
	return ListItem{
		ID:          p.ID,
		Title:       title,
		Meta:        preview.Meta(preview.TypeLabel(p.Type), preview.HoursLabel(p.Hours), p.Location, status),
		Published:   p.Published,
		ToggleLabel: toggle,
	}
}

// RenderList fetches all postings. A failed fetch yields an inline message
// and an error notice; it never returns an error.
func (c *Controller) RenderList(ctx context.Context) ListView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.renderListLocked(ctx)
}

func (c *Controller) renderListLocked(ctx context.Context) ListView {
	all, err := c.store.List(ctx)
	if err != nil {
		c.notify(KindError, messageOr(err, "Jobs laden fehlgeschlagen."))
		return ListView{Items: []ListItem{}, Message: ListLoadFailed, Failed: true}
	}
	c.listing = all

	if len(all) == 0 {
		return ListView{Items: []ListItem{}, Message: ListEmpty}
	}
	items := make([]ListItem, 0, len(all))
	for _, p := range all {
		items = append(items, NewListItem(p))
	}
	return ListView{Items: items}
}

// ExportFileName is the download name of Export's output.
const ExportFileName = "jobs.json"

// Export returns every posting as indented JSON.
func (c *Controller) Export(ctx context.Context) ([]byte, error) {
	out, err := ExportJSON(ctx, c.store)
	if err != nil {
		c.notify(KindError, messageOr(err, "Export fehlgeschlagen."))
		return nil, err
	}
	c.notify(KindSuccess, ExportFileName+" exportiert.")
	return out, nil
}

// ExportJSON loads all postings from store and encodes them.
func ExportJSON(ctx context.Context, store interface {
	List(ctx context.Context) ([]jobs.Posting, error)
}) ([]byte, error) {
	all, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	if all == nil {
		all = []jobs.Posting{}
	}
	out, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode jobs: %w", err)
	}
	return out, nil
}
