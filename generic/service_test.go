package generic_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/slot-engine/generic"
)

func TestNewService_Validation(t *testing.T) {
	seats := generic.GreaterThan("seats", generic.IntValue(4))

	tests := []struct {
		name    string
		build   func() (generic.Service, error)
		wantErr error
	}{
		{
			name: "complex requirements on different types",
			build: func() (generic.Service, error) {
				return generic.NewService("ok", "OK",
					generic.ComplexResourceRequirement{ID: "van", ResourceType: "vehicle", Predicates: []generic.MetadataPredicate{seats}},
					generic.ComplexResourceRequirement{ID: "room", ResourceType: "room", Predicates: []generic.MetadataPredicate{seats}},
				)
			},
		},
		{
			name: "two complex requirements on one type",
			build: func() (generic.Service, error) {
				return generic.NewService("vans", "Vans",
					generic.ComplexResourceRequirement{ID: "a", ResourceType: "vehicle", Predicates: []generic.MetadataPredicate{seats}},
					generic.ComplexResourceRequirement{ID: "b", ResourceType: "vehicle"},
				)
			},
			wantErr: generic.ErrMultipleComplexRequirements,
		},
		{
			name: "complex plus any suitable on one type",
			build: func() (generic.Service, error) {
				return generic.NewService("mixed", "Mixed",
					generic.ComplexResourceRequirement{ID: "a", ResourceType: "vehicle", Predicates: []generic.MetadataPredicate{seats}},
					generic.AnySuitableResource{ID: "b", ResourceType: "vehicle"},
				)
			},
		},
		{
			name: "duplicate requirement id",
			build: func() (generic.Service, error) {
				return generic.NewService("dup", "Dup", needs("staff", "staff"), needs("staff", "room"))
			},
			wantErr: generic.ErrDuplicateRequirementID,
		},
		{
			name: "empty pool",
			build: func() (generic.Service, error) {
				return generic.NewPooledService("class", "Class", 0, needs("room", "room"))
			},
			wantErr: generic.ErrInvalidCapacity,
		},
		{
			name: "no requirements",
			build: func() (generic.Service, error) {
				return generic.NewService("free", "Free")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, generic.IsConfigError(err))
			assert.True(t, generic.IsClientError(err))

			var cfgErr *generic.ServiceConfigError
			assert.True(t, errors.As(err, &cfgErr))
		})
	}
}

func TestService_Accessors(t *testing.T) {
	pooled := generic.MustService(generic.NewPooledService("class", "Class", 12, needs("room", "room")))
	assert.True(t, pooled.IsPooled())
	assert.Equal(t, generic.Capacity(12), pooled.PoolCapacity())

	plain := oneStaffService()
	assert.False(t, plain.IsPooled())
	assert.Equal(t, generic.Capacity(0), plain.PoolCapacity())

	req, ok := plain.Requirement("staff")
	require.True(t, ok)
	assert.Equal(t, generic.RequirementID("staff"), req.RequirementID())

	_, ok = plain.Requirement("room")
	assert.False(t, ok)
}

func TestMustService_Panics(t *testing.T) {
	assert.Panics(t, func() {
		generic.MustService(generic.NewPooledService("class", "Class", -1))
	})
}

func TestBookingSpec_EffectiveCapacity(t *testing.T) {
	assert.Equal(t, generic.Capacity(1), generic.BookingSpec{}.EffectiveCapacity())
	assert.Equal(t, generic.Capacity(3), generic.BookingSpec{BookedCapacity: 3}.EffectiveCapacity())
}
