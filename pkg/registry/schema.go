// pkg/registry/schema.go
package registry

// ProgramCatalog lists the assistance programs an office accepts
// applications for. The code of a program is the application service type.
type ProgramCatalog struct {
	Version     string    `json:"version"`
	LastUpdated string    `json:"lastUpdated"`
	Programs    []Program `json:"programs"`

	index map[string]int
}

type Program struct {
	Code            string   `json:"code"`
	DisplayName     string   `json:"displayName"`
	Description     string   `json:"description"`
	Active          bool     `json:"active"`
	AssistanceTypes []string `json:"assistanceTypes"`
	Tags            []string `json:"tags"`
}
