package domain

// Tag catalog entry (tags_catalog table). Tags are structure-scoped; rows with
// an empty structure_id are shared by every site.
type Tag struct {
	TagID       string `db:"tag_id" json:"tag_id"`
	StructureID string `db:"structure_id" json:"structure_id"`
	TagName     string `db:"tag_name" json:"tag_name"`
}

// TypeConditionInfo describes one condition kind for the tree-editing UI.
type TypeConditionInfo struct {
	Code        string   `json:"code"`
	Libelle     string   `json:"libelle"`
	Description string   `json:"description"`
	Operateurs  []string `json:"operateurs,omitempty"`
	Modes       []string `json:"modes,omitempty"`
}
