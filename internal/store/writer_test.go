package store

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"

	"qcss/internal/model"
)

func setupMockDB(t *testing.T) (pgxmock.PgxPoolIface, *pgxMockAdapter) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock, &pgxMockAdapter{mock: mock}
}

func TestWriter_Write_NilTreeIsNoOp(t *testing.T) {
	mock, adapter := setupMockDB(t)
	w := NewWriter(adapter)

	if err := w.Write(context.Background(), "dev1", "", "", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expected zero queries, got: %v", err)
	}
}

func TestWriter_Write_DeviceScope_ClosesThenInsertsThenRecurses(t *testing.T) {
	mock, adapter := setupMockDB(t)
	w := NewWriter(adapter)

	tree := model.NewLoadBalancer("dev1", "f5ltm")
	tree.Description = "edge pair 1"
	vs := model.NewVirtualServer("vs1")
	vs.VIP, vs.Protocol, vs.Mode = "10.0.0.1:80", "tcp", "round-robin"
	vs.RealServers["rs1"] = &model.RealServer{Name: "rs1", RIP: "10.0.1.1", RPort: 8080, Protocol: "tcp", Weight: 10, State: model.StateUp}
	tree.VirtualServers["vs1"] = vs

	mock.ExpectBegin()

	mock.ExpectExec(`UPDATE loadbalancer SET deleted = now\(\) WHERE name = \$1 AND deleted = 'infinity'`).
		WithArgs("dev1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`INSERT INTO loadbalancer \(name, kind, description\) VALUES \(\$1, \$2, \$3\)`).
		WithArgs("dev1", "f5ltm", "edge pair 1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	// writeActions(lb, "", "") on an empty action map: only the absence-close
	// query runs, no key is present to reinsert.
	mock.ExpectQuery(`SELECT key FROM action WHERE lb = \$1 AND vs_name = \$2 AND rs_name = \$3 AND deleted = 'infinity'`).
		WithArgs("dev1", "", "").
		WillReturnRows(pgxmock.NewRows([]string{"key"}))

	// reconcile virtual servers: only vs1 present, nothing absent to close.
	mock.ExpectQuery(`SELECT name FROM virtualserver WHERE lb = \$1 AND deleted = 'infinity'`).
		WithArgs("dev1").
		WillReturnRows(pgxmock.NewRows([]string{"name"}))

	mock.ExpectExec(`UPDATE virtualserver SET deleted = now\(\) WHERE lb = \$1 AND name = \$2 AND deleted = 'infinity'`).
		WithArgs("dev1", "vs1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectExec(`INSERT INTO virtualserver \(lb, name, vip, protocol, mode\) VALUES \(\$1, \$2, \$3, \$4, \$5\)`).
		WithArgs("dev1", "vs1", "10.0.0.1:80", "tcp", "round-robin").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	mock.ExpectQuery(`SELECT key FROM virtualserver_extra WHERE lb = \$1 AND vs_name = \$2 AND deleted = 'infinity'`).
		WithArgs("dev1", "vs1").
		WillReturnRows(pgxmock.NewRows([]string{"key"}))

	mock.ExpectQuery(`SELECT key FROM action WHERE lb = \$1 AND vs_name = \$2 AND rs_name = \$3 AND deleted = 'infinity'`).
		WithArgs("dev1", "vs1", "").
		WillReturnRows(pgxmock.NewRows([]string{"key"}))

	mock.ExpectQuery(`SELECT name FROM realserver WHERE lb = \$1 AND vs_name = \$2 AND deleted = 'infinity'`).
		WithArgs("dev1", "vs1").
		WillReturnRows(pgxmock.NewRows([]string{"name"}))

	mock.ExpectExec(`UPDATE realserver SET deleted = now\(\) WHERE lb = \$1 AND vs_name = \$2 AND name = \$3 AND deleted = 'infinity'`).
		WithArgs("dev1", "vs1", "rs1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectExec(`INSERT INTO realserver \(lb, vs_name, name, kind, rip, rport, protocol, weight, state\) VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, \$9\)`).
		WithArgs("dev1", "vs1", "rs1", KindReal, "10.0.1.1", 8080, "tcp", 10, "up").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	mock.ExpectQuery(`SELECT key FROM realserver_extra WHERE lb = \$1 AND vs_name = \$2 AND rs_name = \$3 AND deleted = 'infinity'`).
		WithArgs("dev1", "vs1", "rs1").
		WillReturnRows(pgxmock.NewRows([]string{"key"}))

	mock.ExpectQuery(`SELECT key FROM action WHERE lb = \$1 AND vs_name = \$2 AND rs_name = \$3 AND deleted = 'infinity'`).
		WithArgs("dev1", "vs1", "rs1").
		WillReturnRows(pgxmock.NewRows([]string{"key"}))

	mock.ExpectCommit()

	if err := w.Write(context.Background(), "dev1", "", "", tree); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestWriter_Write_VSAbsentFromDeviceSnapshotIsClosedNotReinserted(t *testing.T) {
	mock, adapter := setupMockDB(t)
	w := NewWriter(adapter)

	tree := model.NewLoadBalancer("dev1", "f5ltm")

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE loadbalancer`).WithArgs("dev1").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`INSERT INTO loadbalancer`).WithArgs("dev1", "f5ltm", "").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`SELECT key FROM action`).WithArgs("dev1", "", "").WillReturnRows(pgxmock.NewRows([]string{"key"}))

	mock.ExpectQuery(`SELECT name FROM virtualserver WHERE lb = \$1 AND deleted = 'infinity'`).
		WithArgs("dev1").
		WillReturnRows(pgxmock.NewRows([]string{"name"}).AddRow("stale-vs"))
	mock.ExpectExec(`UPDATE virtualserver SET deleted = now\(\) WHERE lb = \$1 AND name = \$2 AND deleted = 'infinity'`).
		WithArgs("dev1", "stale-vs").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	// closeVSSubtree tears down everything that lived under the now-closed
	// virtual server: its extra attributes, its actions, and any real/sorry
	// servers (none here, so each liveKeys lookup comes back empty).
	mock.ExpectQuery(`SELECT key FROM virtualserver_extra WHERE lb = \$1 AND vs_name = \$2 AND deleted = 'infinity'`).
		WithArgs("dev1", "stale-vs").
		WillReturnRows(pgxmock.NewRows([]string{"key"}))
	mock.ExpectQuery(`SELECT key FROM action WHERE lb = \$1 AND vs_name = \$2 AND deleted = 'infinity'`).
		WithArgs("dev1", "stale-vs").
		WillReturnRows(pgxmock.NewRows([]string{"key"}))
	mock.ExpectQuery(`SELECT name FROM realserver WHERE lb = \$1 AND vs_name = \$2 AND deleted = 'infinity'`).
		WithArgs("dev1", "stale-vs").
		WillReturnRows(pgxmock.NewRows([]string{"name"}))

	mock.ExpectCommit()

	if err := w.Write(context.Background(), "dev1", "", "", tree); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestWriter_Write_RSAbsentFromVSSnapshotCascadesExtraAndActionClose(t *testing.T) {
	mock, adapter := setupMockDB(t)
	w := NewWriter(adapter)

	vs := model.NewVirtualServer("vs1")
	vs.VIP, vs.Protocol, vs.Mode = "10.0.0.1:80", "tcp", "round-robin"
	tree := model.NewLoadBalancer("dev1", "f5ltm")
	tree.VirtualServers["vs1"] = vs

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE virtualserver SET deleted = now\(\)`).WithArgs("dev1", "vs1").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`INSERT INTO virtualserver`).
		WithArgs("dev1", "vs1", "10.0.0.1:80", "tcp", "round-robin").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`SELECT key FROM virtualserver_extra`).WithArgs("dev1", "vs1").WillReturnRows(pgxmock.NewRows([]string{"key"}))
	mock.ExpectQuery(`SELECT key FROM action WHERE lb = \$1 AND vs_name = \$2 AND rs_name = \$3`).
		WithArgs("dev1", "vs1", "").
		WillReturnRows(pgxmock.NewRows([]string{"key"}))

	mock.ExpectQuery(`SELECT name FROM realserver WHERE lb = \$1 AND vs_name = \$2 AND deleted = 'infinity'`).
		WithArgs("dev1", "vs1").
		WillReturnRows(pgxmock.NewRows([]string{"name"}).AddRow("stale-rs"))
	mock.ExpectExec(`UPDATE realserver SET deleted = now\(\) WHERE lb = \$1 AND vs_name = \$2 AND name = \$3 AND deleted = 'infinity'`).
		WithArgs("dev1", "vs1", "stale-rs").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	mock.ExpectQuery(`SELECT key FROM realserver_extra WHERE lb = \$1 AND vs_name = \$2 AND rs_name = \$3 AND deleted = 'infinity'`).
		WithArgs("dev1", "vs1", "stale-rs").
		WillReturnRows(pgxmock.NewRows([]string{"key"}))
	mock.ExpectQuery(`SELECT key FROM action WHERE lb = \$1 AND vs_name = \$2 AND rs_name = \$3 AND deleted = 'infinity'`).
		WithArgs("dev1", "vs1", "stale-rs").
		WillReturnRows(pgxmock.NewRows([]string{"key"}))

	mock.ExpectCommit()

	if err := w.Write(context.Background(), "dev1", "vs1", "", tree); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestWriter_Write_RSScopeTargetsOnlyThatRealServer(t *testing.T) {
	mock, adapter := setupMockDB(t)
	w := NewWriter(adapter)

	vs := model.NewVirtualServer("vs1")
	vs.RealServers["rs1"] = &model.RealServer{Name: "rs1", RIP: "10.0.1.1", RPort: 80, Protocol: "tcp", Weight: 5, State: model.StateDown}
	tree := model.NewLoadBalancer("dev1", "f5ltm")
	tree.VirtualServers["vs1"] = vs

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE realserver SET deleted = now\(\) WHERE lb = \$1 AND vs_name = \$2 AND name = \$3 AND deleted = 'infinity'`).
		WithArgs("dev1", "vs1", "rs1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`INSERT INTO realserver`).
		WithArgs("dev1", "vs1", "rs1", KindReal, "10.0.1.1", 80, "tcp", 5, "down").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`SELECT key FROM realserver_extra`).WithArgs("dev1", "vs1", "rs1").WillReturnRows(pgxmock.NewRows([]string{"key"}))
	mock.ExpectQuery(`SELECT key FROM action`).WithArgs("dev1", "vs1", "rs1").WillReturnRows(pgxmock.NewRows([]string{"key"}))
	mock.ExpectCommit()

	if err := w.Write(context.Background(), "dev1", "vs1", "rs1", tree); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestWriter_Write_ScopedWriteRollsBackOnError(t *testing.T) {
	mock, adapter := setupMockDB(t)
	w := NewWriter(adapter)

	vs := model.NewVirtualServer("vs1")
	vs.RealServers["rs1"] = &model.RealServer{Name: "rs1", State: model.StateUp}
	tree := model.NewLoadBalancer("dev1", "f5ltm")
	tree.VirtualServers["vs1"] = vs

	boom := context.DeadlineExceeded
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE realserver SET deleted = now\(\)`).WithArgs("dev1", "vs1", "rs1").WillReturnError(boom)
	mock.ExpectRollback()

	if err := w.Write(context.Background(), "dev1", "vs1", "rs1", tree); err == nil {
		t.Fatal("expected error to propagate")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
