package repo

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// Props returns the property map stored under key, whether the record holds
// a node or a plain map projection.
func Props(rec *neo4j.Record, key string) (map[string]any, bool) {
	v, ok := rec.Get(key)
	if !ok {
		return nil, false
	}
	switch n := v.(type) {
	case dbtype.Node:
		return n.Props, true
	case map[string]any:
		return n, true
	default:
		return nil, false
	}
}

// StrProp reads a string property, "" when absent.
func StrProp(props map[string]any, key string) string {
	if v, ok := props[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// IntProp reads an integer property. Neo4j returns int64; maps built in
// memory may hold int or float64.
func IntProp(props map[string]any, key string) int {
	switch v := props[key].(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

// BoolProp reads an optional boolean property.
func BoolProp(props map[string]any, key string) *bool {
	if b, ok := props[key].(bool); ok {
		return &b
	}
	return nil
}
