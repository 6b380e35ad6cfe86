package router

import (
	"database/sql"
	"net/http"
	"os"
	"time"

	mem "pet-med-tracker/internal/adapters/storage/memory"
	pg "pet-med-tracker/internal/adapters/storage/postgres"
	"pet-med-tracker/internal/domain/administrations"
	"pet-med-tracker/internal/domain/animals"
	"pet-med-tracker/internal/domain/duedoses"
	"pet-med-tracker/internal/domain/households"
	"pet-med-tracker/internal/domain/inventory"
	"pet-med-tracker/internal/domain/medications"
	"pet-med-tracker/internal/domain/regimens"
	"pet-med-tracker/internal/domain/reports"
	"pet-med-tracker/internal/domain/syncqueue"
	"pet-med-tracker/internal/middleware"
	"pet-med-tracker/internal/ports/auth"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "pet-med-tracker/docs"
)

type Options struct {
	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)

	Logger *zerolog.Logger

	// Opcional: si viene, usa Postgres. Si no, in-memory.
	DB *sql.DB

	// TTL del cache de due-doses. Cero usa el default del servicio.
	DueCacheTTL time.Duration

	// Cutoff por defecto (minutos) para regímenes creados sin uno explícito.
	// Cero usa el default del servicio.
	DefaultCutoffMins int
}

func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	if opts.Logger != nil {
		r.Use(middleware.RequestLog(*opts.Logger))
	}

	r.Use(middleware.AuthContext(opts.AuthVerifier))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	var (
		householdsRepo      households.Repository
		animalsRepo         animals.Repository
		medicationsRepo     medications.Repository
		regimensRepo        regimens.Repository
		administrationsRepo administrations.Repository
		inventoryRepo       inventory.Repository
	)

	// Si no te pasan DB explícita, intenta por env (para dev/handoff)
	db := opts.DB
	if db == nil {
		if dsn := os.Getenv("DB_DSN"); dsn != "" {
			opened, err := pg.Open(dsn)
			if err == nil {
				db = opened
			}
		}
	}

	if db != nil {
		householdsRepo = pg.NewHouseholdsRepo(db)
		animalsRepo = pg.NewAnimalsRepo(db)
		medicationsRepo = pg.NewMedicationsRepo(db)
		regimensRepo = pg.NewRegimensRepo(db)
		administrationsRepo = pg.NewAdministrationsRepo(db)
		inventoryRepo = pg.NewInventoryRepo(db)
	} else {
		householdsRepo = mem.NewHouseholdsRepo()
		animalsRepo = mem.NewAnimalsRepo()
		medicationsRepo = mem.NewMedicationsRepo()
		regimensRepo = mem.NewRegimensRepo()
		administrationsRepo = mem.NewAdministrationsRepo()
		inventoryRepo = mem.NewInventoryRepo()
	}

	// Services por módulo
	householdsSvc := households.NewService(householdsRepo)
	animalsSvc := animals.NewService(animalsRepo)
	medicationsSvc := medications.NewService(medicationsRepo)
	regimensSvc := regimens.NewService(regimensRepo)
	regimensSvc.SetDefaultCutoff(opts.DefaultCutoffMins)
	inventorySvc := inventory.NewService(inventoryRepo)

	administrationsSvc := administrations.NewService(
		administrationsRepo, animalsSvc, regimensSvc, householdsSvc, inventorySvc,
	)
	dueSvc := duedoses.NewService(
		animalsSvc, regimensSvc, householdsSvc, administrationsSvc, opts.DueCacheTTL,
	)
	// El recorder invalida el cache del clasificador al registrar o anular.
	administrationsSvc.SetInvalidator(dueSvc)

	reportsSvc := reports.NewService(animalsSvc, regimensSvc, householdsSvc, administrationsSvc)

	queue := syncqueue.NewQueue()
	direct := syncqueue.NewDirectDispatcher(administrationsSvc)

	// Rutas por módulo
	households.RegisterRoutes(r, householdsSvc)
	animals.RegisterRoutes(r, animalsSvc, householdsSvc)
	medications.RegisterRoutes(r, medicationsSvc)
	regimens.RegisterRoutes(r, regimensSvc, animalsSvc, medicationsSvc, householdsSvc)
	duedoses.RegisterRoutes(r, dueSvc, householdsSvc)
	administrations.RegisterRoutes(r, administrationsSvc)
	inventory.RegisterRoutes(r, inventorySvc, householdsSvc)
	reports.RegisterRoutes(r, reportsSvc, animalsSvc, householdsSvc)
	syncqueue.RegisterRoutes(r, queue, direct)

	return r
}
