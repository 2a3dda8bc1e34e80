// Package storetest holds the behaviour every persistence.ProjectStore must share.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/mohitkumar/promptflow/model"
	"github.com/mohitkumar/promptflow/persistence"
	"github.com/stretchr/testify/require"
)

func Project(id string) model.Project {
	call := model.NewCall("c1")
	call.SystemPrompt = "Hello {{name}}"
	return model.Project{
		Id:                  id,
		Name:                "project " + id,
		CommonVariableNames: []string{"name"},
		Workflows: []model.Workflow{{
			Id:        "w1",
			Name:      "greet",
			Variables: map[string]string{"name": "World"},
			Steps:     []model.Step{{Id: "s1", Title: "Greet", Calls: []model.Call{call}}},
		}},
	}
}

func RunProjectStoreTests(t *testing.T, newStore func(t *testing.T) persistence.ProjectStore) {
	for scenario, fn := range map[string]func(t *testing.T, store persistence.ProjectStore){
		"save and load":           testSaveLoad,
		"missing project":         testMissing,
		"loaded copy is isolated": testIsolation,
		"list and delete":         testListDelete,
		"invalid id rejected":     testInvalidId,
	} {
		t.Run(scenario, func(t *testing.T) {
			fn(t, newStore(t))
		})
	}
}

func testSaveLoad(t *testing.T, store persistence.ProjectStore) {
	ctx := context.Background()
	require.NoError(t, store.SaveProject(ctx, Project("p1")))

	p, err := store.LoadProject(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, Project("p1"), *p)
}

func testMissing(t *testing.T, store persistence.ProjectStore) {
	ctx := context.Background()
	_, err := store.LoadProject(ctx, "nope")
	require.True(t, errors.Is(err, persistence.ErrProjectNotFound))
	require.True(t, errors.Is(store.DeleteProject(ctx, "nope"), persistence.ErrProjectNotFound))
}

func testIsolation(t *testing.T, store persistence.ProjectStore) {
	ctx := context.Background()
	require.NoError(t, store.SaveProject(ctx, Project("p1")))

	p, err := store.LoadProject(ctx, "p1")
	require.NoError(t, err)
	p.Workflows[0].Variables["name"] = "Changed"

	again, err := store.LoadProject(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "World", again.Workflows[0].Variables["name"])
}

func testListDelete(t *testing.T, store persistence.ProjectStore) {
	ctx := context.Background()
	for _, id := range []string{"b", "a", "c"} {
		require.NoError(t, store.SaveProject(ctx, Project(id)))
	}
	ids, err := store.ListProjects(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, ids)

	require.NoError(t, store.DeleteProject(ctx, "b"))
	ids, err = store.ListProjects(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "c"}, ids)
}

func testInvalidId(t *testing.T, store persistence.ProjectStore) {
	require.Error(t, store.SaveProject(context.Background(), Project("../escape")))
	require.Error(t, store.SaveProject(context.Background(), Project("")))
}
