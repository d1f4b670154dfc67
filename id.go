package recur

import "github.com/xraph/recur/id"

// ID is the identifier type for Recur parties and receipts.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
