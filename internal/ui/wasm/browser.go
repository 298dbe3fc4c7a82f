//go:build js && wasm

package wasm

import (
	"fmt"
	"syscall/js"

	"github.com/Its-donkey/quinfall-site/internal/drops/linkstate"
)

// localStorage adapts window.localStorage to linkstate.Storage. Browsers throw from
// every storage call in some privacy modes; those throws come back as errors.
type localStorage struct {
	storage js.Value
}

// newStorage returns the browser's localStorage, or an in-memory store when it is not
// available.
func newStorage() linkstate.Storage {
	var storage js.Value
	if err := catch(func() { storage = js.Global().Get("localStorage") }); err != nil || !storage.Truthy() {
		return linkstate.NewMemoryStorage()
	}
	return localStorage{storage: storage}
}

func (s localStorage) GetItem(key string) (value string, ok bool, err error) {
	err = catch(func() {
		v := s.storage.Call("getItem", key)
		if v.Type() == js.TypeString {
			value, ok = v.String(), true
		}
	})
	return value, ok, err
}

func (s localStorage) SetItem(key, value string) error {
	return catch(func() { s.storage.Call("setItem", key, value) })
}

func (s localStorage) RemoveItem(key string) error {
	return catch(func() { s.storage.Call("removeItem", key) })
}

// browserHistory rewrites the current entry without a reload.
type browserHistory struct{}

func (browserHistory) ReplaceState(path string) {
	history := js.Global().Get("history")
	if !history.Truthy() {
		return
	}
	_ = catch(func() { history.Call("replaceState", js.Null(), "", path) })
}

// browserNavigator performs a full-page navigation.
type browserNavigator struct{}

func (browserNavigator) Navigate(target string) {
	js.Global().Get("location").Call("assign", target)
}

// catch converts a JavaScript exception raised inside fn into an error.
func catch(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if jsErr, ok := r.(js.Error); ok {
				err = jsErr
				return
			}
			err = fmt.Errorf("javascript: %v", r)
		}
	}()
	fn()
	return nil
}
