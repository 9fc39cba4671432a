package stores

import (
	"github.com/zkamm/rollup/internal/domain"
	"github.com/zkamm/rollup/internal/field"
)

// BalancesTreeHeight is fixed to match the external circuit (spec §3).
const BalancesTreeHeight = 23

// BalancesStore is the domain store over Balance entities (spec §4.6).
type BalancesStore struct {
	*KeyedStore[domain.Balance, domain.BalanceKey]
}

// OpenBalancesStore opens (or creates) the Balances store under dir.
func OpenBalancesStore(dir string, hasher field.EntityHasher) (*BalancesStore, error) {
	s, err := OpenKeyedStore(dir, hasher, KeyedStoreConfig[domain.Balance, domain.BalanceKey]{
		RecordSize: domain.BalanceSize,
		TreeHeight: BalancesTreeHeight,
		ToBytes: func(b domain.Balance) []byte {
			a := b.ToBytes()
			return a[:]
		},
		FromBytes: func(buf []byte) domain.Balance {
			var a [domain.BalanceSize]byte
			copy(a[:], buf)
			return domain.BalanceFromBytes(a)
		},
		ToFields: func(b domain.Balance, h field.EntityHasher) []field.Field {
			f := b.ToFields(h)
			return f[:]
		},
		KeyOf: domain.Balance.Key,
	})
	if err != nil {
		return nil, err
	}
	return &BalancesStore{s}, nil
}
