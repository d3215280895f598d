package specialist

import (
	"context"
	"fmt"

	contractx "github.com/scribadev/scriba/agent/contract"
	llmx "github.com/scribadev/scriba/agent/llm"
	promptx "github.com/scribadev/scriba/agent/prompt"
	routerx "github.com/scribadev/scriba/agent/router"
)

type registryImpl struct {
	classifier contractx.Classifier
	editor     contractx.Specialist
	qa         contractx.Specialist
	fallback   contractx.Specialist
}

func (r *registryImpl) Classifier() contractx.Classifier {
	return r.classifier
}

func (r *registryImpl) Editor() contractx.Specialist {
	return r.editor
}

func (r *registryImpl) QA() contractx.Specialist {
	return r.qa
}

func (r *registryImpl) Fallback() contractx.Specialist {
	return r.fallback
}

func NewRegistry(ctx context.Context, cfg llmx.Config) (contractx.Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	prompts := promptx.LoadPromptSet()

	classifierModelCfg := cfg.OpenRouterFor(contractx.AgentTypeClassifier)
	classifierModel, err := classifierModelCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create classifier model: %v", contractx.ErrProvider, err)
	}
	editorModelCfg := cfg.OpenRouterFor(contractx.AgentTypeEditor)
	editorModel, err := editorModelCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create editor model: %v", contractx.ErrProvider, err)
	}
	qaModelCfg := cfg.OpenRouterFor(contractx.AgentTypeQA)
	qaModel, err := qaModelCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create qa model: %v", contractx.ErrProvider, err)
	}

	classifier, err := routerx.New(ctx, classifierModel, prompts.Classifier)
	if err != nil {
		return nil, err
	}
	editor, err := newSpecialist(ctx, contractx.AgentTypeEditor, editorModel, prompts.Editor)
	if err != nil {
		return nil, err
	}
	qa, err := newSpecialist(ctx, contractx.AgentTypeQA, qaModel, prompts.QA)
	if err != nil {
		return nil, err
	}

	return &registryImpl{
		classifier: classifier,
		editor:     editor,
		qa:         qa,
		fallback:   &fallbackSpecialist{},
	}, nil
}
