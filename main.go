package main

import (
	"log"
	"os"

	_ "github.com/go-sql-driver/mysql"

	"github.com/wenjyue84/MakanManager-sub001/Budget"
	"github.com/wenjyue84/MakanManager-sub001/Config"
	"github.com/wenjyue84/MakanManager-sub001/CronJobs"
	"github.com/wenjyue84/MakanManager-sub001/FiberConfig"
	"github.com/wenjyue84/MakanManager-sub001/Models"
	"github.com/wenjyue84/MakanManager-sub001/Notifications"
	"github.com/wenjyue84/MakanManager-sub001/Scoring"
	"github.com/wenjyue84/MakanManager-sub001/Workflow"
)

func main() {
	setupLogging()
	Config.LoadEnv()
	cfg := Config.Load("config.json5")

	Models.Connect()
	db := Models.DB

	taskStore := Models.NewTaskStore(db)
	ledger := Models.NewPointsLedger(db)
	budgetStore := Models.NewBudgetStore(db, cfg.Workflow.DailyBudgetDefault)
	eventLog := Models.NewEventLog(db)

	guard := Budget.NewGuard(budgetStore)
	machine := Workflow.NewMachine(taskStore, ledger, Models.NewSettlementStore(db), guard, eventLog, cfg.Workflow)
	suggester := Scoring.NewSuggester(ledger, taskStore, cfg.Scoring)

	if credentials := os.Getenv("FIREBASE_CREDENTIALS"); credentials != "" {
		if err := Notifications.InitFirebase(credentials); err != nil {
			log.Printf("Firebase disabled: %v", err)
		} else {
			machine.Notifier = Notifications.NewDispatcher(db)
		}
	}

	scheduler := CronJobs.NewScheduler(machine, guard)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer scheduler.Stop()

	app := FiberConfig.New(FiberConfig.Deps{
		DB:        db,
		Machine:   machine,
		Guard:     guard,
		Suggester: suggester,
		Events:    eventLog,
		Today: func() string {
			return Budget.Day(machine.Clock.Now())
		},
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}
	log.Fatal(app.Listen(":" + port))
}

func setupLogging() {
	if err := os.MkdirAll("logs", 0755); err != nil {
		log.Printf("Error creating logs directory: %v\n", err)
		return
	}

	logFile, err := os.OpenFile("logs/application.log",
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Printf("Error opening log file: %v\n", err)
		return
	}

	log.SetOutput(logFile)
	log.SetFlags(log.Ldate | log.Ltime)
}
