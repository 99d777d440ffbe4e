package main

import (
	"github.com/verdano/oms/internal/app"
	"github.com/verdano/oms/internal/config"
)

func main() {
	config.MustInit()
	app.MustNewApp().Run()
}
