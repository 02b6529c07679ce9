package json

import (
	"testing"

	"github.com/drakos74/deep-cca/internal/storage"
	"github.com/stretchr/testify/assert"
)

type payload struct {
	Run    string    `json:"run"`
	Losses []float64 `json:"losses"`
}

func TestBlobStorage_Roundtrip(t *testing.T) {
	storage.DefaultDir = t.TempDir()

	blob := NewJsonBlob("deep-cca", "test")
	key := storage.Key{
		Hash:   42,
		Run:    "run-1",
		Method: "DCCAE",
	}
	in := payload{
		Run:    "run-1",
		Losses: []float64{3.5, 2.1, 1.7},
	}

	err := blob.Store(key, in)
	assert.NoError(t, err)

	var out payload
	err = blob.Load(key, &out)
	assert.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestBlobStorage_LoadMissingKey(t *testing.T) {
	storage.DefaultDir = t.TempDir()

	blob := NewJsonBlob("deep-cca", "test")
	var out payload
	err := blob.Load(storage.Key{Hash: 1, Run: "missing", Method: "DCCAE"}, &out)
	assert.ErrorIs(t, err, storage.NotFoundErr)
}

func TestLocalStorage_Roundtrip(t *testing.T) {
	store, err := LocalShard()("test")
	assert.NoError(t, err)

	key := storage.Key{Hash: 7, Run: "run-2", Method: "DVCCA"}
	in := payload{Run: "run-2", Losses: []float64{1.2, 0.8}}

	assert.NoError(t, store.Store(key, in))

	var out payload
	assert.NoError(t, store.Load(key, &out))
	assert.Equal(t, in, out)

	assert.Error(t, store.Load(storage.Key{Hash: 8, Run: "other", Method: "DVCCA"}, &out))
}

func TestBlobStorage_KeysDoNotCollide(t *testing.T) {
	storage.DefaultDir = t.TempDir()

	blob := NewJsonBlob("deep-cca", "test")
	k1 := storage.Key{Hash: 1, Run: "a", Method: "DCCAE"}
	k2 := storage.Key{Hash: 1, Run: "a", Method: "DVCCA"}

	assert.NoError(t, blob.Store(k1, payload{Run: "a"}))
	assert.NoError(t, blob.Store(k2, payload{Run: "b"}))

	var out payload
	assert.NoError(t, blob.Load(k1, &out))
	assert.Equal(t, "a", out.Run)
	assert.NoError(t, blob.Load(k2, &out))
	assert.Equal(t, "b", out.Run)
}
