package transfer

import "github.com/caspianlab/georag/internal/db"

// Mapping is the JSON rendition of an index definition.
type Mapping struct {
	Index    string         `json:"index"`
	Prefixes []string       `json:"prefixes"`
	Fields   []MappingField `json:"fields"`
}

// MappingField mirrors db.IndexField with string-typed enums.
type MappingField struct {
	Name              string `json:"name"`
	Alias             string `json:"alias,omitempty"`
	Type              string `json:"type"`
	TagSeparator      string `json:"tag_separator,omitempty"`
	VectorAlgo        string `json:"vector_algo,omitempty"`
	VectorDim         int    `json:"vector_dim,omitempty"`
	VectorDistance    string `json:"vector_distance,omitempty"`
	VectorM           int    `json:"vector_m,omitempty"`
	VectorEFConstruct int    `json:"vector_ef_construct,omitempty"`
}

var fieldTypeNames = map[db.IndexFieldType]string{
	db.IndexFieldNumeric: "numeric",
	db.IndexFieldTag:     "tag",
	db.IndexFieldText:    "text",
	db.IndexFieldVector:  "vector",
}

var fieldTypeValues = map[string]db.IndexFieldType{
	"numeric": db.IndexFieldNumeric,
	"tag":     db.IndexFieldTag,
	"text":    db.IndexFieldText,
	"vector":  db.IndexFieldVector,
}

func mappingFromDef(def *db.IndexDefinition) Mapping {
	m := Mapping{Index: def.Name, Prefixes: def.Prefixes}
	for _, f := range def.Fields {
		m.Fields = append(m.Fields, MappingField{
			Name:              f.Name,
			Alias:             f.Alias,
			Type:              fieldTypeNames[f.Type],
			TagSeparator:      f.TagSeparator,
			VectorAlgo:        string(f.VectorAlgo),
			VectorDim:         f.VectorDim,
			VectorDistance:    string(f.VectorDistance),
			VectorM:           f.VectorM,
			VectorEFConstruct: f.VectorEFConstruct,
		})
	}
	return m
}

// IndexDefinition converts the mapping back to the db form.
func (m Mapping) IndexDefinition() *db.IndexDefinition {
	def := &db.IndexDefinition{Name: m.Index, Prefixes: m.Prefixes}
	for _, f := range m.Fields {
		def.Fields = append(def.Fields, db.IndexField{
			Name:              f.Name,
			Alias:             f.Alias,
			Type:              fieldTypeValues[f.Type],
			TagSeparator:      f.TagSeparator,
			VectorAlgo:        db.VectorAlgorithm(f.VectorAlgo),
			VectorDim:         f.VectorDim,
			VectorDistance:    db.DistanceMetric(f.VectorDistance),
			VectorM:           f.VectorM,
			VectorEFConstruct: f.VectorEFConstruct,
		})
	}
	return def
}
