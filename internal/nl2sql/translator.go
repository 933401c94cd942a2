package nl2sql

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/dbchat/dbchat/internal/agent"
	"github.com/dbchat/dbchat/internal/config"
	"github.com/dbchat/dbchat/internal/schema"
)

type TableContext struct {
	TableName string   `json:"table_name"`
	Columns   []string `json:"columns"`
}

type Request struct {
	NaturalLanguage string         `json:"natural_language"`
	Dialect         string         `json:"dialect"`
	Tables          []TableContext `json:"tables"`
	Relationships   []string       `json:"relationships,omitempty"`
}

type Result struct {
	SQL      string `json:"sql"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// Translator plans a single SQL statement for a question without running it.
type Translator interface {
	Translate(ctx context.Context, req Request) (Result, error)
}

func RequestFromSnapshot(prompt, dialect string, snapshot schema.Snapshot) Request {
	tables := make([]TableContext, 0, len(snapshot.Tables))
	for _, table := range snapshot.Tables {
		columns := make([]string, 0, len(snapshot.Columns[table]))
		for _, column := range snapshot.Columns[table] {
			if column.DataType == "" {
				columns = append(columns, column.Name)
				continue
			}
			columns = append(columns, column.Name+" "+column.DataType)
		}
		tables = append(tables, TableContext{TableName: table, Columns: columns})
	}
	return Request{
		NaturalLanguage: strings.TrimSpace(prompt),
		Dialect:         dialect,
		Tables:          tables,
		Relationships:   snapshot.RelationshipStrings(),
	}
}

// New returns a translator for the configured provider. The underlying client
// is created on the first Translate call.
func New(cfg config.AIConfig) Translator {
	return &lazyTranslator{build: func() (Translator, error) {
		switch cfg.Provider {
		case config.ProviderOpenAI:
			translator, err := NewOpenAITranslator(OpenAIConfig{
				BaseURL:     cfg.BaseURL,
				APIKey:      cfg.APIKey,
				Model:       cfg.Model,
				Temperature: cfg.Temperature,
				Timeout:     cfg.Timeout,
			})
			if err != nil {
				return nil, err
			}
			return translator, nil
		default:
			client, err := agent.NewClient(cfg, systemPrompt)
			if err != nil {
				return nil, err
			}
			model := cfg.Model
			if model == "" {
				model = "default"
			}
			return NewModelTranslator(client, cfg.Provider, model), nil
		}
	}}
}

type lazyTranslator struct {
	build func() (Translator, error)

	once       sync.Once
	translator Translator
	err        error
}

func (l *lazyTranslator) Translate(ctx context.Context, req Request) (Result, error) {
	l.once.Do(func() {
		l.translator, l.err = l.build()
	})
	if l.err != nil {
		return Result{}, fmt.Errorf("initialize translator: %w", l.err)
	}
	return l.translator.Translate(ctx, req)
}
