//go:build js && wasm

package wasm

import (
	"net/url"
	"os"
	"syscall/js"

	"github.com/sirupsen/logrus"
)

func document() js.Value {
	return js.Global().Get("document")
}

// RunApp bootstraps the Quinfall WASM client and blocks forever.
func RunApp() {
	done := make(chan struct{})

	base := logrus.New()
	base.SetOutput(os.Stdout)
	base.SetFormatter(&logrus.JSONFormatter{})
	logger := base.WithField("site", "quinfall-wasm")

	root := document().Call("getElementById", "drops-root")
	if !root.Truthy() {
		logger.Debug("drops root missing; nothing to mount")
		<-done
		return
	}

	location, err := url.Parse(js.Global().Get("location").Get("href").String())
	if err != nil {
		logger.WithError(err).Error("parse page location")
		<-done
		return
	}

	app := newDropsApp(root, location, logger)
	app.start(root, location)
	<-done
}
