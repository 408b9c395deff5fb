package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log"
	"os"

	"github.com/hubertat/servicemaker"

	"github.com/imperator765/swpanel"
	"github.com/imperator765/swpanel/web"
)

var (
	Version string
	Build   string

	config       = flag.String("config", "config.json", "path of the configuration file")
	flagInstall  = flag.Bool("install", false, "Install service in os")
	pollInterval = flag.String("poll", "", "status poll interval override (time.Duration)")

	panelService = servicemaker.ServiceMaker{
		User:               "swpanel",
		ServicePath:        "/etc/systemd/system/swpanel.service",
		ServiceDescription: "swpanel service: dashboard and HomeKit bridge for a remote switch server. github.com/imperator765/swpanel",
		ExecDir:            "/srv/swpanel",
		ExecName:           "swpanel",
	}
)

func main() {
	log.Printf("swpanel %s started\n", Version)
	flag.Parse()

	if *flagInstall {
		err := panelService.InstallService()
		if err != nil {
			panic(err)
		} else {
			log.Println("service installed!")
			return
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	panel := &swpanel.Panel{}
	configFile, err := os.Open(*config)
	if err == nil {
		cBuff, err := io.ReadAll(configFile)
		if err != nil {
			log.Fatalf("failed reading config file: %v\n", err)
		}

		err = json.Unmarshal(cBuff, panel)
		if err != nil {
			log.Fatalf("failed unmarshalling json config: %v", err)
		}
	} else {
		log.Fatalf("can't find/open config file (%s), will terminate. Reason: \n%v\n", *config, err)
	}

	if len(*pollInterval) > 0 {
		panel.PollInterval = *pollInterval
	}

	log.Println("will init panel...")
	err = panel.Init()
	defer panel.Close()
	if err != nil {
		panic(err)
	}

	log.Println("will connect push source...")
	err = panel.ConnectPush(ctx)
	if err != nil {
		log.Printf("push source failed: %v\n we will proceed with pull only...", err)
	}

	webServer := web.NewServer(panel.WebAddress, panel.Store(), panel)
	go func() {
		log.Fatal(webServer.ListenAndServe())
	}()
	defer webServer.Close()

	if len(panel.HkPin) == 8 {
		log.Println("Starting with HomeKit server")

		// HomeKit accessories are built from the switch list, fetch it first
		panel.SyncNow(ctx)

		go panel.StartSync(ctx)
		log.Fatal(panel.StartHomeKit(ctx, Version))
	} else {
		log.Println("HomeKit not configured, disabled")
		panel.StartSync(ctx)
	}
}
