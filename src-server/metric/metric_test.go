package metric

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"evhub/src-server/model"
	"evhub/src-server/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestAppState(t *testing.T) *utils.AppState {
	t.Helper()
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("DISCORD_APP_TOKEN", "")
	t.Setenv("METRIC_COLLECTION_INTERVAL", "1h")
	as, err := utils.NewAppState(utils.NewConfig())
	if err != nil {
		t.Fatal(err)
	}
	return as
}

// eventually polls cond for up to a second.
func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestGaugesFollowChannels(t *testing.T) {
	as := newTestAppState(t)
	reg := prometheus.NewRegistry()
	g := newGauges(reg)
	start(as, g)

	as.MetricChans.StoreRead <- 42
	as.MetricChans.DiscordSendMessage <- 7
	eventually(t, func() bool {
		return testutil.ToFloat64(g.storeRead) == 42 && testutil.ToFloat64(g.discordSendMessage) == 7
	})
	if got := testutil.ToFloat64(g.storeWrite); got != 0 {
		t.Errorf("store write = %v", got)
	}

	as.GracefulShutdown()
	eventually(t, func() bool {
		families, err := reg.Gather()
		return err == nil && len(families) == 1 // only the never-fed empty read gauge is left
	})
}

func TestDatabaseProbe(t *testing.T) {
	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	defer db.Close()

	if _, err := database(db); err == nil {
		t.Error("probe should fail before the schema exists")
	}
	if err := model.CreateSchema(context.Background(), db); err != nil {
		t.Fatal(err)
	}
	if _, err := database(db); err != nil {
		t.Errorf("probe: %v", err)
	}
}
