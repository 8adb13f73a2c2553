package application

import (
	"net/http"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

type pingService struct{}

type keyedController struct{ key string }

func (c *keyedController) Key() string { return c.key }
func (c *keyedController) Register(r *mux.Router) {
	r.HandleFunc(c.key, func(w http.ResponseWriter, r *http.Request) {})
}

func TestApplication_ServiceRegistry(t *testing.T) {
	app := New(&ApplicationOptions{})
	svc := &pingService{}
	app.RegisterServices(svc)

	got := app.Service(pingService{}).(*pingService)
	require.Same(t, svc, got)
	require.Panics(t, func() { app.Service(keyedController{}) })
}

func TestApplication_ControllersAreSortedAndDeduplicated(t *testing.T) {
	app := New(&ApplicationOptions{})
	app.RegisterControllers(&keyedController{key: "/b"}, &keyedController{key: "/a"}, &keyedController{key: "/b"})

	controllers := app.Controllers()
	require.Len(t, controllers, 2)
	require.Equal(t, "/a", controllers[0].Key())
	require.Equal(t, "/b", controllers[1].Key())
	require.NotNil(t, app.EventPublisher())
}
