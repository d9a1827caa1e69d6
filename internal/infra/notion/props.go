package notion

import "github.com/haruchi-os/haruchi-sync/internal/domain"

// ─── Wire Format ────────────────────────────────────────────────────────────
// Notion property values are tagged unions. propertyJSON covers exactly the
// kinds this system reads and writes; one struct serves both directions
// (plain_text on read, text.content on write).

type pageObject struct {
	ID         string                  `json:"id"`
	Properties map[string]propertyJSON `json:"properties"`
}

type propertyJSON struct {
	Type     string        `json:"type,omitempty"`
	Title    []richText    `json:"title,omitempty"`
	RichText []richText    `json:"rich_text,omitempty"`
	Number   *float64      `json:"number,omitempty"`
	Checkbox *bool         `json:"checkbox,omitempty"`
	Select   *optionRef    `json:"select,omitempty"`
	Status   *optionRef    `json:"status,omitempty"`
	Date     *dateRef      `json:"date,omitempty"`
	Relation []relationRef `json:"relation,omitempty"`
}

type richText struct {
	PlainText string       `json:"plain_text,omitempty"`
	Text      *textContent `json:"text,omitempty"`
}

type textContent struct {
	Content string `json:"content"`
}

type optionRef struct {
	Name string `json:"name"`
}

type dateRef struct {
	Start string `json:"start"`
}

type relationRef struct {
	ID string `json:"id"`
}

// decodeRecord converts a page object into a domain record. Properties that
// are null or empty on the wire are left out of the field map entirely, so
// the domain can distinguish "absent" from "explicit zero".
func decodeRecord(obj pageObject) domain.Record {
	rec := domain.Record{ID: obj.ID, Fields: make(map[string]domain.Value)}

	for name, p := range obj.Properties {
		switch p.Type {
		case "title":
			if len(p.Title) > 0 {
				rec.Fields[name] = domain.TitleValue(p.Title[0].PlainText)
			}
		case "rich_text":
			if len(p.RichText) > 0 {
				rec.Fields[name] = domain.RichTextValue(p.RichText[0].PlainText)
			}
		case "number":
			if p.Number != nil {
				rec.Fields[name] = domain.NumberValue(*p.Number)
			}
		case "checkbox":
			if p.Checkbox != nil {
				rec.Fields[name] = domain.CheckboxValue(*p.Checkbox)
			}
		case "select":
			if p.Select != nil && p.Select.Name != "" {
				rec.Fields[name] = domain.SelectValue(p.Select.Name)
			}
		case "status":
			if p.Status != nil && p.Status.Name != "" {
				rec.Fields[name] = domain.Value{Kind: domain.KindStatus, Text: p.Status.Name}
			}
		case "date":
			if p.Date != nil {
				rec.Fields[name] = domain.DateValue(p.Date.Start)
			}
		case "relation":
			if len(p.Relation) > 0 {
				ids := make([]string, 0, len(p.Relation))
				for _, r := range p.Relation {
					ids = append(ids, r.ID)
				}
				rec.Fields[name] = domain.RelationValue(ids...)
			}
		}
	}
	return rec
}

// encodeFields converts domain values into the write-side wire format.
func encodeFields(fields map[string]domain.Value) map[string]propertyJSON {
	out := make(map[string]propertyJSON, len(fields))
	for name, v := range fields {
		switch v.Kind {
		case domain.KindTitle:
			out[name] = propertyJSON{Title: []richText{{Text: &textContent{Content: v.Text}}}}
		case domain.KindRichText:
			out[name] = propertyJSON{RichText: []richText{{Text: &textContent{Content: v.Text}}}}
		case domain.KindNumber:
			n := v.Number
			out[name] = propertyJSON{Number: &n}
		case domain.KindCheckbox:
			b := v.Checked
			out[name] = propertyJSON{Checkbox: &b}
		case domain.KindSelect:
			out[name] = propertyJSON{Select: &optionRef{Name: v.Text}}
		case domain.KindStatus:
			out[name] = propertyJSON{Status: &optionRef{Name: v.Text}}
		case domain.KindDate:
			out[name] = propertyJSON{Date: &dateRef{Start: v.Text}}
		case domain.KindRelation:
			refs := make([]relationRef, 0, len(v.Relations))
			for _, id := range v.Relations {
				refs = append(refs, relationRef{ID: id})
			}
			out[name] = propertyJSON{Relation: refs}
		}
	}
	return out
}

// compileFilter lowers a domain filter into Notion's query filter JSON.
// A nil return means "no filter" and must be omitted from the request.
func compileFilter(f domain.Filter) any {
	if len(f.And) == 0 {
		return nil
	}
	conds := make([]map[string]any, 0, len(f.And))
	for _, c := range f.And {
		conds = append(conds, compileCondition(c))
	}
	if len(conds) == 1 {
		return conds[0]
	}
	return map[string]any{"and": conds}
}

func compileCondition(c domain.Condition) map[string]any {
	switch c.Kind {
	case domain.CondStatusEquals:
		return map[string]any{"property": c.Field, "status": map[string]any{"equals": c.Text}}
	case domain.CondTextEquals:
		return map[string]any{"property": c.Field, "rich_text": map[string]any{"equals": c.Text}}
	case domain.CondRelationContains:
		return map[string]any{"property": c.Field, "relation": map[string]any{"contains": c.Text}}
	default: // CondCheckboxEquals
		return map[string]any{"property": c.Field, "checkbox": map[string]any{"equals": c.Bool}}
	}
}
