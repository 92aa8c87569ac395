// Package runtime assembles one Runtime value bundling every long-lived
// collaborator the CLI commands need, following Design Note §9: no
// globals or singletons, a single composition root built once at startup
// (mirrored from the teacher's cmd/nerd/main.go wiring, generalized from a
// cobra-specific rootCmd closure into a reusable value).
package runtime

import (
	"context"
	"fmt"

	"github.com/codebase-gardener/gardener/internal/adapter"
	"github.com/codebase-gardener/gardener/internal/config"
	"github.com/codebase-gardener/gardener/internal/controller"
	"github.com/codebase-gardener/gardener/internal/embedding"
	"github.com/codebase-gardener/gardener/internal/llmclient"
	"github.com/codebase-gardener/gardener/internal/logging"
	"github.com/codebase-gardener/gardener/internal/projectcontext"
	"github.com/codebase-gardener/gardener/internal/projects"
	"github.com/codebase-gardener/gardener/internal/registry"
	"github.com/codebase-gardener/gardener/internal/trainer"
	"github.com/codebase-gardener/gardener/internal/vectorstore"
)

// Runtime bundles every component the CLI dispatches to.
type Runtime struct {
	Config     *config.Config
	Registry   *registry.Registry
	Projects   *projects.Registry
	Contexts   *projectcontext.Manager
	Loader     *adapter.Loader
	Controller *controller.Controller
}

// New builds a Runtime from a loaded configuration: opens the project
// registry, constructs the context manager and adapter loader, probes for
// an embedding engine and LLM endpoint, registers their availability in
// the Component Registry, and wires the Analysis Controller on top.
func New(cfg *config.Config) (*Runtime, error) {
	paths := cfg.Paths()

	projReg, err := projects.Open(paths.RegistryFile)
	if err != nil {
		return nil, fmt.Errorf("open project registry: %w", err)
	}

	contexts := projectcontext.NewManager(cfg.Context.MaxContextsInMemory, cfg.Context.MaxMessagesPerProject,
		func(id string) string { return paths.ProjectContextFile(id) })

	reg := registry.New()

	embedder, err := embedding.NewEngine(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("construct embedding engine: %w", err)
	}
	reg.MustRegister(&registry.Capability{
		Name: controller.CapEmbeddingGeneration,
		Probe: func() (bool, string) {
			hc, ok := embedder.(embedding.HealthChecker)
			if !ok {
				return true, ""
			}
			if err := hc.HealthCheck(context.Background()); err != nil {
				return false, err.Error()
			}
			return true, ""
		},
		Instance: embedder,
	})

	llm := llmclient.New(cfg.LLM.Host, cfg.LLM.Model, cfg.GetConnectTimeout(), cfg.GetRequestTimeout())
	reg.MustRegister(&registry.Capability{
		Name: "llm",
		Probe: func() (bool, string) {
			if err := llm.HealthCheck(context.Background()); err != nil {
				return false, err.Error()
			}
			return true, ""
		},
		Instance: llm,
	})

	adapterAvailable := func() (bool, string) {
		return false, "adapter runtime is not bundled in this build"
	}
	reg.MustRegister(&registry.Capability{
		Name:  "adapter_runtime",
		Probe: adapterAvailable,
	})

	reg.MustRegister(&registry.Capability{
		Name: controller.CapVectorStorage,
		Probe: func() (bool, string) {
			if !vectorstore.HasVectorExtension() {
				return false, "sqlite-vec extension not linked in this build"
			}
			return true, ""
		},
	})
	reg.MustRegister(&registry.Capability{
		Name:      controller.CapSemanticSearch,
		DependsOn: []string{controller.CapEmbeddingGeneration, controller.CapVectorStorage},
		Probe:     func() (bool, string) { return true, "" },
	})
	reg.MustRegister(&registry.Capability{
		Name:      controller.CapRAGRetrieval,
		DependsOn: []string{controller.CapEmbeddingGeneration, controller.CapVectorStorage},
		Probe:     func() (bool, string) { return true, "" },
	})
	reg.MustRegister(&registry.Capability{
		Name:      controller.CapTrainingPipeline,
		DependsOn: []string{"adapter_runtime"},
		Probe:     func() (bool, string) { return true, "" },
	})
	reg.MustRegister(&registry.Capability{
		Name:      controller.CapProjectManagement,
		DependsOn: []string{"adapter_runtime"},
		Probe:     func() (bool, string) { return true, "" },
	})

	loader := adapter.New(cfg.Adapter.MaxMemoryBytes, cfg.Adapter.MaxCached, adapterAvailable)
	tr := trainer.New(adapterAvailable)

	ctrl := controller.New(cfg, reg, projReg, contexts, loader, tr, embedder, llm)

	logging.Get(logging.CategoryBoot).Info("runtime initialized: data_root=%s", cfg.DataRoot)

	return &Runtime{
		Config:     cfg,
		Registry:   reg,
		Projects:   projReg,
		Contexts:   contexts,
		Loader:     loader,
		Controller: ctrl,
	}, nil
}
