package catalog

import "heapdb/catalog/db_types"

type Column struct {
	Name string
	Type db_types.TypeID
}

func NewColumn(name string, typeID db_types.TypeID) Column {
	return Column{Name: name, Type: typeID}
}
