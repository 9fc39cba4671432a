package stores

import (
	"github.com/zkamm/rollup/internal/domain"
	"github.com/zkamm/rollup/internal/field"
)

// BurnsTreeHeight is fixed to match the external circuit (spec §3).
const BurnsTreeHeight = 20

// BurnsStore is the domain store over Burn entities (spec §4.6).
type BurnsStore struct {
	*KeyedStore[domain.Burn, domain.BurnKey]
}

// OpenBurnsStore opens (or creates) the Burns store under dir.
func OpenBurnsStore(dir string, hasher field.EntityHasher) (*BurnsStore, error) {
	s, err := OpenKeyedStore(dir, hasher, KeyedStoreConfig[domain.Burn, domain.BurnKey]{
		RecordSize: domain.BurnSize,
		TreeHeight: BurnsTreeHeight,
		ToBytes: func(b domain.Burn) []byte {
			a := b.ToBytes()
			return a[:]
		},
		FromBytes: func(buf []byte) domain.Burn {
			var a [domain.BurnSize]byte
			copy(a[:], buf)
			return domain.BurnFromBytes(a)
		},
		ToFields: func(b domain.Burn, h field.EntityHasher) []field.Field {
			f := b.ToFields(h)
			return f[:]
		},
		KeyOf: domain.Burn.Key,
	})
	if err != nil {
		return nil, err
	}
	return &BurnsStore{s}, nil
}
