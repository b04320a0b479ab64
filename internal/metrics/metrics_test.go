package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounts(t *testing.T) {
	r := New()
	r.TagCreated()
	r.TagCreated()
	r.TagRace()
	r.TaggingsCreated("user", 3)
	r.TaggingsCreated("job", 1)
	r.TaggingsDeleted("user", 0)
	r.TaggingsPromoted("user", 1)
	r.Saved(nil, 0.01)
	r.Saved(errors.New("x"), 0.02)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.tagsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.tagRaces))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.taggingsCreated.WithLabelValues("user")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.saves.WithLabelValues("error")))

	snap, err := r.Snapshot()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, s := range snap {
		values[s.Name] = s.Value
	}
	assert.Equal(t, 4.0, values["tagtical_taggings_created_total"])
	assert.Equal(t, 1.0, values["tagtical_taggings_promoted_total"])
	assert.Equal(t, 2.0, values["tagtical_saves_total"])
	assert.NotContains(t, values, "tagtical_taggings_deleted_total")
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.TagCreated()
		r.TaggingsCreated("user", 1)
		r.Saved(nil, 1)
	})
	snap, err := r.Snapshot()
	assert.NoError(t, err)
	assert.Nil(t, snap)
	assert.Nil(t, r.Registry())
}
