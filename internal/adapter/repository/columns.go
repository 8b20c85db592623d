package repository

import (
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// columnSet records which optional columns exist. Schema changes are additive and may land
// after the code that reads them, so repositories check once at construction and leave
// missing columns out of writes. Reads already treat absent columns as null.
type columnSet map[string]bool

func detectColumns(db *gorm.DB, logger *zap.Logger, value interface{}, names ...string) columnSet {
	set := make(columnSet, len(names))
	migrator := db.Migrator()
	for _, name := range names {
		set[name] = migrator.HasColumn(value, name)
		if !set[name] {
			logger.Warn("Optional column missing, writes will skip it",
				zap.String("column", name))
		}
	}
	return set
}

func (c columnSet) has(name string) bool {
	return c[name]
}

// missing returns the checked columns that do not exist, for use with Omit.
func (c columnSet) missing() []string {
	var out []string
	for name, ok := range c {
		if !ok {
			out = append(out, name)
		}
	}
	return out
}

// omitMissing applies Omit for absent columns.
func (c columnSet) omitMissing(tx *gorm.DB) *gorm.DB {
	if cols := c.missing(); len(cols) > 0 {
		return tx.Omit(cols...)
	}
	return tx
}
