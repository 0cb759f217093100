package workflow

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Registry holds the known workflow definitions and the document-type ->
// definition assignment. It is constructed explicitly and injected wherever
// needed; there is no process-global instance. The in-memory maps are
// authoritative; the RegistryStore is best-effort durability.
type Registry struct {
	mu          sync.RWMutex
	definitions map[string]*Definition
	activations map[string]string // documentType -> definitionID

	store  RegistryStore
	logger *zap.Logger
}

// NewRegistry creates an empty registry. store may be nil for memory-only
// operation (tests, single-process deployments without a database).
func NewRegistry(store RegistryStore, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		definitions: make(map[string]*Definition),
		activations: make(map[string]string),
		store:       store,
		logger:      logger,
	}
}

// Register validates and stores a definition. The install hook runs after
// validation; persistence failure is logged but does not roll back the
// in-memory registration.
func (r *Registry) Register(ctx context.Context, def *Definition) error {
	if err := validateDefinition(def); err != nil {
		return err
	}

	r.mu.Lock()
	if _, exists := r.definitions[def.ID]; exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: definition %s", ErrDuplicate, def.ID)
	}
	r.definitions[def.ID] = def
	r.mu.Unlock()

	r.runHook(ctx, def, "install", hookOf(def, func(h *Hooks) func(context.Context) error { return h.OnInstall }))

	if r.store != nil {
		if err := r.store.SaveDefinition(ctx, def); err != nil {
			r.logger.Warn("failed to persist workflow definition",
				zap.String("definition_id", def.ID), zap.Error(err))
		}
	}

	r.logger.Info("workflow definition registered",
		zap.String("definition_id", def.ID),
		zap.String("name", def.Name),
		zap.String("version", def.Version))
	return nil
}

// Unregister removes a definition and any activations pointing at it.
func (r *Registry) Unregister(ctx context.Context, id string) error {
	r.mu.Lock()
	def, ok := r.definitions[id]
	if !ok {
		r.mu.Unlock()
		return notFoundErrorf("definition %s", id)
	}
	delete(r.definitions, id)
	var orphaned []string
	for docType, defID := range r.activations {
		if defID == id {
			orphaned = append(orphaned, docType)
			delete(r.activations, docType)
		}
	}
	r.mu.Unlock()

	r.runHook(ctx, def, "uninstall", hookOf(def, func(h *Hooks) func(context.Context) error { return h.OnUninstall }))

	if r.store != nil {
		for _, docType := range orphaned {
			if err := r.store.DeleteActivation(ctx, docType); err != nil {
				r.logger.Warn("failed to remove activation", zap.String("document_type", docType), zap.Error(err))
			}
		}
		if err := r.store.DeleteDefinition(ctx, id); err != nil {
			r.logger.Warn("failed to remove persisted definition", zap.String("definition_id", id), zap.Error(err))
		}
	}

	r.logger.Info("workflow definition unregistered", zap.String("definition_id", id))
	return nil
}

// ActivateForDocumentType makes the definition the active workflow for a
// document type. A previously active definition's disable hook runs first.
// In-flight documents keep the definition they started with; only new
// initializations see the change.
func (r *Registry) ActivateForDocumentType(ctx context.Context, definitionID, documentType string) error {
	r.mu.Lock()
	def, ok := r.definitions[definitionID]
	if !ok {
		r.mu.Unlock()
		return notFoundErrorf("definition %s", definitionID)
	}
	prev := r.definitions[r.activations[documentType]]
	r.activations[documentType] = definitionID
	r.mu.Unlock()

	if prev != nil && prev.ID != definitionID {
		r.runHook(ctx, prev, "disable", hookOf(prev, func(h *Hooks) func(context.Context) error { return h.OnDisable }))
	}
	r.runHook(ctx, def, "enable", hookOf(def, func(h *Hooks) func(context.Context) error { return h.OnEnable }))

	if r.store != nil {
		if err := r.store.SaveActivation(ctx, documentType, definitionID); err != nil {
			r.logger.Warn("failed to persist activation",
				zap.String("document_type", documentType), zap.Error(err))
		}
	}

	r.logger.Info("workflow activated",
		zap.String("definition_id", definitionID),
		zap.String("document_type", documentType))
	return nil
}

// DeactivateForDocumentType is an idempotent no-op when nothing is active.
func (r *Registry) DeactivateForDocumentType(ctx context.Context, documentType string) error {
	r.mu.Lock()
	defID, ok := r.activations[documentType]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	def := r.definitions[defID]
	delete(r.activations, documentType)
	r.mu.Unlock()

	if def != nil {
		r.runHook(ctx, def, "disable", hookOf(def, func(h *Hooks) func(context.Context) error { return h.OnDisable }))
	}

	if r.store != nil {
		if err := r.store.DeleteActivation(ctx, documentType); err != nil {
			r.logger.Warn("failed to remove persisted activation",
				zap.String("document_type", documentType), zap.Error(err))
		}
	}

	r.logger.Info("workflow deactivated", zap.String("document_type", documentType))
	return nil
}

// DefinitionForDocument resolves the active definition for a document's type.
// Returns nil if none is active.
func (r *Registry) DefinitionForDocument(doc Document) *Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.activations[doc.Type]
	if !ok {
		return nil
	}
	return r.definitions[id]
}

// Definition looks up a registered definition by id.
func (r *Registry) Definition(id string) *Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.definitions[id]
}

// ListAll returns metadata for every registered definition.
func (r *Registry) ListAll() []Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Metadata, 0, len(r.definitions))
	for _, def := range r.definitions {
		out = append(out, def.Meta())
	}
	return out
}

// ListActive returns a snapshot of the document-type -> definition mapping.
func (r *Registry) ListActive() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.activations))
	for k, v := range r.activations {
		out[k] = v
	}
	return out
}

// Export returns the pure-data config of a definition.
func (r *Registry) Export(id string) (*Config, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.definitions[id]
	if !ok {
		return nil, notFoundErrorf("definition %s", id)
	}
	cfg := def.Config
	return &cfg, nil
}

// Import registers a definition built from an exported config. Because the
// engine interprets configs directly, imported definitions behave exactly
// like hand-authored ones.
func (r *Registry) Import(ctx context.Context, cfg Config, meta Metadata) (string, error) {
	if meta.ID == "" {
		return "", validationErrorf("import requires a definition id")
	}
	def := &Definition{
		ID:           meta.ID,
		Name:         meta.Name,
		Version:      meta.Version,
		Description:  meta.Description,
		Organization: meta.Organization,
		Author:       meta.Author,
		Config:       cfg,
	}
	if def.Name == "" {
		def.Name = "Imported Workflow"
	}
	if def.Version == "" {
		def.Version = "1.0.0"
	}
	if err := r.Register(ctx, def); err != nil {
		return "", err
	}
	return def.ID, nil
}

// RestoreActivations reloads the document-type mapping from the store,
// skipping entries whose definition is not registered in this process.
func (r *Registry) RestoreActivations(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	saved, err := r.store.LoadActivations(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for docType, defID := range saved {
		if _, ok := r.definitions[defID]; ok {
			r.activations[docType] = defID
		} else {
			r.logger.Warn("skipping activation for unknown definition",
				zap.String("document_type", docType), zap.String("definition_id", defID))
		}
	}
	return nil
}

// Hooks are best-effort: a failing hook is logged, never propagated.
func (r *Registry) runHook(ctx context.Context, def *Definition, name string, fn func(context.Context) error) {
	if fn == nil {
		return
	}
	if err := fn(ctx); err != nil {
		r.logger.Warn("workflow hook failed",
			zap.String("definition_id", def.ID),
			zap.String("hook", name),
			zap.Error(err))
	}
}

func hookOf(def *Definition, pick func(*Hooks) func(context.Context) error) func(context.Context) error {
	if def.Hooks == nil {
		return nil
	}
	return pick(def.Hooks)
}

// validateDefinition enforces the structural invariants every definition must
// satisfy before it can drive documents.
func validateDefinition(def *Definition) error {
	if def == nil {
		return validationErrorf("definition is nil")
	}
	if def.ID == "" || def.Name == "" || def.Version == "" {
		return validationErrorf("id, name and version are required")
	}
	if len(def.Config.Stages) == 0 {
		return validationErrorf("definition %s has no stages", def.ID)
	}

	stageIDs := make(map[string]Stage, len(def.Config.Stages))
	for _, s := range def.Config.Stages {
		if s.ID == "" {
			return validationErrorf("definition %s has a stage with an empty id", def.ID)
		}
		if _, dup := stageIDs[s.ID]; dup {
			return validationErrorf("duplicate stage id %q", s.ID)
		}
		stageIDs[s.ID] = s
	}

	for _, s := range def.Config.Stages {
		for _, a := range s.Actions {
			if a.TargetStage == "" {
				continue
			}
			if _, ok := stageIDs[a.TargetStage]; !ok {
				return validationErrorf("stage %q action %q targets unknown stage %q", s.ID, a.ID, a.TargetStage)
			}
		}
	}

	outgoing := make(map[string]int)
	seen := make(map[string]string) // from+action -> transition id
	for _, t := range def.Config.Transitions {
		if _, ok := stageIDs[t.From]; !ok {
			return validationErrorf("transition %s references unknown stage %q", t.ID, t.From)
		}
		if _, ok := stageIDs[t.To]; !ok {
			return validationErrorf("transition %s references unknown stage %q", t.ID, t.To)
		}
		key := t.From + "\x00" + t.Action
		if prev, dup := seen[key]; dup {
			return validationErrorf("transitions %s and %s both map (%s, %s)", prev, t.ID, t.From, t.Action)
		}
		seen[key] = t.ID
		outgoing[t.From]++
	}

	// Terminal stages are explicit and must agree with the transition table.
	for _, s := range def.Config.Stages {
		if s.Terminal && outgoing[s.ID] > 0 {
			return validationErrorf("terminal stage %q has outgoing transitions", s.ID)
		}
		if !s.Terminal && outgoing[s.ID] == 0 {
			return validationErrorf("stage %q has no outgoing transitions but is not marked terminal", s.ID)
		}
	}

	for _, rule := range def.Config.BusinessRules {
		for _, a := range rule.Actions {
			switch a.Type {
			case RuleSetField, RuleSendNotification, RuleCallAPI, RuleTriggerWorkflow:
			default:
				return validationErrorf("business rule %s uses unsupported action type %q", rule.ID, a.Type)
			}
		}
	}

	return nil
}
