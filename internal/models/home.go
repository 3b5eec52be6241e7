package models

// HomeLink is one outbound link on the home view.
type HomeLink struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Icon string `json:"icon,omitempty"`
}

// HomeDoc is the introduction text and link list of the home view.
type HomeDoc struct {
	Introduction string     `json:"introduction"`
	Links        []HomeLink `json:"links"`
}

// HomeFromRows builds a HomeDoc from about-sheet rows. The first non-empty
// introduction wins; rows with both a link name and URL become links.
func HomeFromRows(rows []Row) *HomeDoc {
	doc := &HomeDoc{Links: []HomeLink{}}
	for _, r := range rows {
		if doc.Introduction == "" {
			doc.Introduction = str(r, "introduction")
		}
		name, url := str(r, "link_name", "linkName"), str(r, "link_url", "linkUrl")
		if name == "" || url == "" {
			continue
		}
		doc.Links = append(doc.Links, HomeLink{Name: name, URL: url, Icon: str(r, "link_icon", "linkIcon")})
	}
	return doc
}

// FileMeta is a lightweight description of a data file.
type FileMeta struct {
	Path     string `json:"path"`
	Checksum string `json:"checksum"`
}
