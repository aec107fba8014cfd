package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/thisisjab/rulezilla/entity"
	"github.com/thisisjab/rulezilla/fault"
	"github.com/thisisjab/rulezilla/rule"
	"github.com/thisisjab/rulezilla/rule/ast"
	"github.com/thisisjab/rulezilla/storage"
)

const (
	ruleKindSingle   = "single"
	ruleKindCombined = "combined"
)

type createRuleRequest struct {
	RuleString         string   `json:"rule_string"`
	RuleName           string   `json:"rule_name"`
	Description        string   `json:"description"`
	OptionalAttributes []string `json:"optional_attributes"`
}

func (req createRuleRequest) validate() error {
	errs := fault.FieldErrorsMetadata{}

	if strings.TrimSpace(req.RuleString) == "" {
		errs["rule_string"] = append(errs["rule_string"], "Field is required.")
	}
	if strings.TrimSpace(req.RuleName) == "" {
		errs["rule_name"] = append(errs["rule_name"], "Field is required.")
	}

	if len(errs) > 0 {
		return fault.New(fault.BadInputCode, "").WithMetadata(errs)
	}
	return nil
}

// ruleResponse is a stored rule plus its rendered form.
type ruleResponse struct {
	entity.Rule
	Rendered string `json:"rendered"`
}

func newRuleResponse(r entity.Rule) ruleResponse {
	return ruleResponse{Rule: r, Rendered: ast.String(r.AST.Root)}
}

// createRuleHandler parses rule_string, marks the optional attributes and stores the rule.
func (s *server) createRuleHandler(w http.ResponseWriter, r *http.Request) {
	var req createRuleRequest
	if s.returnOnError(w, r, s.readJson(w, r, &req)) {
		return
	}

	if s.returnOnError(w, r, req.validate()) {
		return
	}

	tree, err := s.engine.CreateRule(req.RuleString)
	s.services.Metrics.RecordParse(err)
	if s.returnOnError(w, r, err) {
		return
	}

	tree = rule.MarkOptionalAll(tree, req.OptionalAttributes...)

	created := entity.NewRule(strings.TrimSpace(req.RuleName), req.Description, tree)
	if s.returnOnError(w, r, s.services.RuleStore.CreateRule(r.Context(), created)) {
		return
	}
	s.services.Metrics.RecordStored(ruleKindSingle)

	s.logger.Info("rule created", "name", created.Name, "rule", ast.String(tree))

	s.writeJson(w, http.StatusCreated, apiResponse{ //nolint:errcheck
		Success: true,
		Message: "Rule created.",
		Data:    newRuleResponse(created),
	}, nil)
}

type combineRulesRequest struct {
	Rules            []string `json:"rules"`
	CombinedRuleName string   `json:"combined_rule_name"`
	Description      string   `json:"description"`
}

func (req combineRulesRequest) validate() error {
	errs := fault.FieldErrorsMetadata{}

	if len(req.Rules) == 0 {
		errs["rules"] = append(errs["rules"], "At least one rule name is required.")
	}
	if strings.TrimSpace(req.CombinedRuleName) == "" {
		errs["combined_rule_name"] = append(errs["combined_rule_name"], "Field is required.")
	}

	if len(errs) > 0 {
		return fault.New(fault.BadInputCode, "").WithMetadata(errs)
	}
	return nil
}

// combineRulesHandler ORs stored rules, in the requested order, into a new stored rule.
func (s *server) combineRulesHandler(w http.ResponseWriter, r *http.Request) {
	var req combineRulesRequest
	if s.returnOnError(w, r, s.readJson(w, r, &req)) {
		return
	}

	if s.returnOnError(w, r, req.validate()) {
		return
	}

	rules, err := s.services.RuleStore.FindRules(r.Context(), req.Rules)
	if s.returnOnError(w, r, err) {
		return
	}

	roots := make([]ast.Node, len(rules))
	for i, stored := range rules {
		roots[i] = stored.AST.Root
	}

	tree, err := rule.CombineNodes(roots...)
	if s.returnOnError(w, r, err) {
		return
	}

	combined := entity.NewRule(strings.TrimSpace(req.CombinedRuleName), req.Description, tree)
	if s.returnOnError(w, r, s.services.RuleStore.CreateRule(r.Context(), combined)) {
		return
	}
	s.services.Metrics.RecordStored(ruleKindCombined)

	s.logger.Info("rules combined", "name", combined.Name, "from", req.Rules)

	s.writeJson(w, http.StatusCreated, apiResponse{ //nolint:errcheck
		Success: true,
		Message: "Rules combined.",
		Data:    newRuleResponse(combined),
	}, nil)
}

type previewCombineRequest struct {
	RuleStrings []string `json:"rule_strings"`
}

// previewCombineHandler parses and combines rule texts without storing anything.
func (s *server) previewCombineHandler(w http.ResponseWriter, r *http.Request) {
	var req previewCombineRequest
	if s.returnOnError(w, r, s.readJson(w, r, &req)) {
		return
	}

	tree, err := s.engine.CombineRules(req.RuleStrings)
	s.services.Metrics.RecordParse(err)
	if s.returnOnError(w, r, err) {
		return
	}

	s.writeJson(w, http.StatusOK, apiResponse{ //nolint:errcheck
		Success: true,
		Data: map[string]any{
			"ast":      ast.Tree{Root: tree},
			"rendered": ast.String(tree),
		},
	}, nil)
}

type evaluateRuleRequest struct {
	RuleName string         `json:"rule_name"`
	Data     map[string]any `json:"data"`
}

func (req evaluateRuleRequest) validate() error {
	errs := fault.FieldErrorsMetadata{}

	if strings.TrimSpace(req.RuleName) == "" {
		errs["rule_name"] = append(errs["rule_name"], "Field is required.")
	}
	if req.Data == nil {
		errs["data"] = append(errs["data"], "Field is required.")
	}

	if len(errs) > 0 {
		return fault.New(fault.BadInputCode, "").WithMetadata(errs)
	}
	return nil
}

// evaluateRuleHandler evaluates an active stored rule against data.
func (s *server) evaluateRuleHandler(w http.ResponseWriter, r *http.Request) {
	var req evaluateRuleRequest
	if s.returnOnError(w, r, s.readJson(w, r, &req)) {
		return
	}

	if s.returnOnError(w, r, req.validate()) {
		return
	}

	stored, err := s.services.RuleStore.GetRule(r.Context(), req.RuleName)
	if s.returnOnError(w, r, err) {
		return
	}

	result, err := s.engine.EvaluateRule(stored.AST.Root, req.Data)
	if s.returnOnError(w, r, err) {
		return
	}

	s.writeJson(w, http.StatusOK, apiResponse{ //nolint:errcheck
		Success: true,
		Data:    map[string]any{"result": result},
	}, nil)
}

// listRulesHandler returns summaries of active rules. Query parameters:
// sort (e.g. "-created_at,name") and limit.
func (s *server) listRulesHandler(w http.ResponseWriter, r *http.Request) {
	q := storage.ListQuery{Sort: storage.ParseSort(r.URL.Query().Get("sort"))}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			s.handleError(w, r, fault.New(fault.BadInputCode, "").WithMetadata(fault.FieldErrorsMetadata{
				"limit": []string{fmt.Sprintf("Expected an integer, got %q.", raw)},
			}))
			return
		}
		q.Limit = limit
	}

	rules, err := s.services.RuleStore.ListRules(r.Context(), q)
	if s.returnOnError(w, r, err) {
		return
	}

	summaries := make([]entity.RuleSummary, len(rules))
	for i, stored := range rules {
		summaries[i] = stored.Summary()
	}

	s.writeJson(w, http.StatusOK, apiResponse{ //nolint:errcheck
		Success:  true,
		Data:     summaries,
		Metadata: map[string]any{"count": len(summaries)},
	}, nil)
}

func (s *server) getRuleHandler(w http.ResponseWriter, r *http.Request) {
	stored, err := s.services.RuleStore.GetRule(r.Context(), r.PathValue("name"))
	if s.returnOnError(w, r, err) {
		return
	}

	s.writeJson(w, http.StatusOK, apiResponse{ //nolint:errcheck
		Success: true,
		Data:    newRuleResponse(stored),
	}, nil)
}

// deleteRuleHandler deactivates a rule. The name stays reserved.
func (s *server) deleteRuleHandler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	if s.returnOnError(w, r, s.services.RuleStore.DeactivateRule(r.Context(), name)) {
		return
	}

	s.logger.Info("rule deactivated", "name", name)

	s.writeJson(w, http.StatusOK, apiResponse{ //nolint:errcheck
		Success: true,
		Message: "Rule deleted.",
	}, nil)
}
