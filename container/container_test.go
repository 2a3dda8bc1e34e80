package container

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/mohitkumar/promptflow/config"
	"github.com/mohitkumar/promptflow/persistence/storetest"
	"github.com/stretchr/testify/require"
)

func TestGettersPanicBeforeInit(t *testing.T) {
	d := NewDiContainer()
	require.Panics(t, func() { d.GetProjectStore() })
	require.Panics(t, func() { d.GetEngine() })
}

func TestInit(t *testing.T) {
	mr := miniredis.RunT(t)
	for scenario, mutate := range map[string]func(t *testing.T, conf *config.Config){
		"memory": func(t *testing.T, conf *config.Config) {
			conf.StorageType = config.STORAGE_TYPE_INMEM
		},
		"file": func(t *testing.T, conf *config.Config) {
			conf.StorageType = config.STORAGE_TYPE_FILE
			conf.FileConfig.DataDir = t.TempDir()
		},
		"redis without cache": func(t *testing.T, conf *config.Config) {
			conf.StorageType = config.STORAGE_TYPE_REDIS
			conf.RedisConfig.Addrs = []string{mr.Addr()}
			conf.CacheTTL = 0
		},
	} {
		t.Run(scenario, func(t *testing.T) {
			conf := config.Default()
			conf.LLMConfig.DefaultProvider = config.PROVIDER_TYPE_ECHO
			mutate(t, &conf)

			d := NewDiContainer()
			require.NoError(t, d.Init(conf))
			defer d.Close()

			ctx := context.Background()
			store := d.GetProjectStore()
			require.NoError(t, store.SaveProject(ctx, storetest.Project("p1")))
			p, err := store.LoadProject(ctx, "p1")
			require.NoError(t, err)

			reports, err := d.GetEngine().Run(ctx, p.Workflows[0], nil)
			require.NoError(t, err)
			require.Equal(t, "Hello World", reports[0].Calls[0].Response)
		})
	}
}

func TestInitLoadsSchemaFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schemas.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`schemas:
  - name: Ticket
    fields:
      - name: title
        type: string
`), 0o644))

	conf := config.Default()
	conf.StorageType = config.STORAGE_TYPE_INMEM
	conf.SchemaFile = path
	d := NewDiContainer()
	require.NoError(t, d.Init(conf))
	require.Contains(t, d.GetSchemaRegistry().Names(), "Ticket")
}

func TestInitRejectsUnknownProvider(t *testing.T) {
	conf := config.Default()
	conf.StorageType = config.STORAGE_TYPE_INMEM
	conf.LLMConfig.DefaultProvider = "carrier-pigeon"
	require.Error(t, NewDiContainer().Init(conf))
}

func TestInitRetriesModelRequests(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Hello back"}}]}`))
	}))
	defer srv.Close()

	conf := config.Default()
	conf.StorageType = config.STORAGE_TYPE_INMEM
	conf.LLMConfig.BaseURL = srv.URL
	conf.LLMConfig.RetryInterval = time.Millisecond
	d := NewDiContainer()
	require.NoError(t, d.Init(conf))

	p := storetest.Project("p1")
	reports, err := d.GetEngine().Run(context.Background(), p.Workflows[0], nil)
	require.NoError(t, err)
	require.True(t, reports[0].Calls[0].Succeeded(), "%+v", reports[0].Calls[0].Error)
	require.Equal(t, "Hello back", reports[0].Calls[0].Response)
	require.Equal(t, int32(2), atomic.LoadInt32(&hits))
}
