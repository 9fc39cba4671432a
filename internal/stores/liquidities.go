package stores

import (
	"github.com/zkamm/rollup/internal/domain"
	"github.com/zkamm/rollup/internal/field"
)

// LiquiditiesTreeHeight is fixed to match the external circuit (spec §3).
const LiquiditiesTreeHeight = 22

// LiquiditiesStore is the domain store over Liquidity entities (spec
// §4.6).
type LiquiditiesStore struct {
	*KeyedStore[domain.Liquidity, domain.LiquidityKey]
}

// OpenLiquiditiesStore opens (or creates) the Liquidities store under dir.
func OpenLiquiditiesStore(dir string, hasher field.EntityHasher) (*LiquiditiesStore, error) {
	s, err := OpenKeyedStore(dir, hasher, KeyedStoreConfig[domain.Liquidity, domain.LiquidityKey]{
		RecordSize: domain.LiquiditySize,
		TreeHeight: LiquiditiesTreeHeight,
		ToBytes: func(l domain.Liquidity) []byte {
			a := l.ToBytes()
			return a[:]
		},
		FromBytes: func(buf []byte) domain.Liquidity {
			var a [domain.LiquiditySize]byte
			copy(a[:], buf)
			return domain.LiquidityFromBytes(a)
		},
		ToFields: func(l domain.Liquidity, h field.EntityHasher) []field.Field {
			f := l.ToFields(h)
			return f[:]
		},
		KeyOf: domain.Liquidity.Key,
	})
	if err != nil {
		return nil, err
	}
	return &LiquiditiesStore{s}, nil
}
