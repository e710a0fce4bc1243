package model

// JSONMap is a free-form diagnostic map stored as a JSON column.
type JSONMap map[string]any
