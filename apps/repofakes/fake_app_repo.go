package fakeapprepo

import (
	"context"
	"sync"

	"github.com/studykit/go-study-auth/apps"
)

var _ apps.Repo = (*FakeAppRepo)(nil)

// FakeAppRepo is an in-memory apps.Repo for tests and dev wiring.
type FakeAppRepo struct {
	apps map[string]*apps.App
	lock sync.RWMutex
}

func NewFakeAppRepo() *FakeAppRepo {
	return &FakeAppRepo{apps: make(map[string]*apps.App)}
}

func (r *FakeAppRepo) Add(app *apps.App) {
	r.lock.Lock()
	defer r.lock.Unlock()
	stored := *app
	r.apps[app.ID] = &stored
}

func (r *FakeAppRepo) Get(ctx context.Context, id string) (*apps.App, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	app, ok := r.apps[id]
	if !ok {
		return nil, apps.ErrAppNotFound
	}
	copied := *app
	return &copied, nil
}
