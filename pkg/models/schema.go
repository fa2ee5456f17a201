package models

// ColumnInfo describes one column of a table.
type ColumnInfo struct {
	Name            string `json:"name"`
	DataType        string `json:"data_type"`
	Nullable        bool   `json:"nullable"`
	Default         string `json:"default,omitempty"`
	OrdinalPosition int    `json:"ordinal_position"`
}

// IndexInfo describes one index of a table.
type IndexInfo struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns,omitempty"`
	Unique  bool     `json:"unique"`
	Primary bool     `json:"primary"`
}

// TableSchema is the full read-only description of a table.
type TableSchema struct {
	Schema      string       `json:"schema"`
	Table       string       `json:"table"`
	Columns     []ColumnInfo `json:"columns"`
	Indexes     []IndexInfo  `json:"indexes"`
	PrimaryKeys []string     `json:"primary_keys,omitempty"`
	RowEstimate int64        `json:"row_estimate"`
}

// TableInfo is one entry of a table listing.
type TableInfo struct {
	Name   string `json:"name"`
	Schema string `json:"schema"`
	Type   string `json:"type"`
}

// TableStats summarizes storage usage of one table.
type TableStats struct {
	Schema      string `json:"schema"`
	Table       string `json:"table"`
	RowEstimate int64  `json:"row_estimate"`
	TotalBytes  int64  `json:"total_bytes"`
	IndexBytes  int64  `json:"index_bytes"`
}

// DatabaseSize reports the on-disk size of a database.
type DatabaseSize struct {
	Database string `json:"database"`
	Bytes    int64  `json:"bytes"`
	Pretty   string `json:"pretty,omitempty"`
}
