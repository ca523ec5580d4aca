package result

// InfoboxURL is a cross-reference link of an infobox.
type InfoboxURL struct {
	Title  string `json:"title,omitempty"`
	URL    string `json:"url"`
	Entity string `json:"entity,omitempty"`
}

// InfoboxAttribute is a single labelled fact of an infobox.
type InfoboxAttribute struct {
	Label  string `json:"label"`
	Value  string `json:"value"`
	Entity string `json:"entity,omitempty"`
}

// Infobox is a fact panel about one topic. Infoboxes from different engines
// with equivalent IDs are merged into one.
type Infobox struct {
	Engine     string             `json:"engine"`
	Engines    EngineSet          `json:"engines"`
	Name       string             `json:"infobox"`
	ID         string             `json:"id,omitempty"`
	Content    string             `json:"content,omitempty"`
	ImgSrc     string             `json:"img_src,omitempty"`
	Attributes []InfoboxAttribute `json:"attributes,omitempty"`
	URLs       []InfoboxURL       `json:"urls,omitempty"`
}

// Kind implements Entry.
func (*Infobox) Kind() Kind { return KindInfobox }
