package routes

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/modoturbo/repocompat/internal/domain"
)

var (
	pagesMethodRe  = regexp.MustCompile(`(?:method\s*={2,3}\s*|case\s+)['"](GET|POST|PUT|PATCH|DELETE|HEAD|OPTIONS)['"]`)
	appHandlerRe   = regexp.MustCompile(`export\s+(?:async\s+function\s+|function\s+|const\s+)(GET|POST|PUT|PATCH|DELETE|HEAD|OPTIONS)\b`)
	expressRouteRe = regexp.MustCompile("\\b(?:router|app|server|api|routes)\\.(get|post|put|patch|delete|head|options)\\(\\s*['\"`]([^'\"`]+)['\"`]")

	queryMemberRe   = regexp.MustCompile(`\b(?:req|request)\.query\.(\w+)`)
	queryGetRe      = regexp.MustCompile(`searchParams\.get\(\s*['"](\w+)['"]`)
	queryDestructRe = regexp.MustCompile(`\{([^{}]*)\}\s*=\s*(?:req|request)\.query\b`)
	bodyDestructRe  = regexp.MustCompile(`\{([^{}]*)\}\s*=\s*(?:(?:req|request)\.body\b|await\s+(?:req|request)\.json\(\))`)
	bodyMemberRe    = regexp.MustCompile(`\b(?:req|request)\.body\.(\w+)`)

	statusCallRe  = regexp.MustCompile(`\.status\(\s*(\d{3})\s*\)`)
	statusFieldRe = regexp.MustCompile(`\bstatus\s*:\s*(\d{3})\b`)
	contentTypeRe = regexp.MustCompile(`['"]Content-Type['"]\s*[:,]\s*['"]([^'"]+)['"]`)
	jsonReplyRe   = regexp.MustCompile(`\.json\(`)
	sendReplyRe   = regexp.MustCompile(`\bres\.send\(`)

	bearerRe     = regexp.MustCompile(`(?i)\bbearer\b|\bauthorization\b|verifyToken|jwt\.verify|getToken\(`)
	apiKeyRe     = regexp.MustCompile(`(?i)x-api-key|\bapi[_-]?key\b`)
	sessionRe    = regexp.MustCompile(`getServerSession|getSession\(|\breq\.session\b|\bauth\(\)|cookies\(\)\.get\(['"]session`)
	middlewareRe = regexp.MustCompile(`\b(?:requireAuth|authenticate|isAuthenticated|ensureAuthenticated|withAuth|protect)\b`)
)

// Convention reads endpoints from Next.js pages/api and app router files
// and from Express-style router calls.
type Convention struct{}

func (Convention) ExtractEndpoints(ctx context.Context, rootPath string, files []string) ([]domain.EndpointDescriptor, error) {
	var eps []domain.EndpointDescriptor
	err := walkRouteFiles(ctx, rootPath, files, func(rel string, style routeStyle, content string) {
		switch style {
		case styleNextPages:
			eps = append(eps, nextPages(rel, content)...)
		case styleNextApp:
			eps = append(eps, nextApp(rel, content)...)
		case styleExpress:
			eps = append(eps, express(rel, content)...)
		}
	})
	if err != nil {
		return nil, err
	}
	return finish(eps), nil
}

// nextPages handles one default-exported handler that switches on req.method.
func nextPages(rel, content string) []domain.EndpointDescriptor {
	route := filePath(rel, styleNextPages)
	var methods []string
	seen := map[string]bool{}
	for _, m := range pagesMethodRe.FindAllStringSubmatch(content, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			methods = append(methods, m[1])
		}
	}
	if len(methods) == 0 {
		methods = []string{"GET"}
	}
	var out []domain.EndpointDescriptor
	for _, method := range methods {
		out = append(out, describe(route, method, content, rel))
	}
	return out
}

// nextApp handles one exported function per HTTP method.
func nextApp(rel, content string) []domain.EndpointDescriptor {
	route := filePath(rel, styleNextApp)
	locs := appHandlerRe.FindAllStringSubmatchIndex(content, -1)
	var out []domain.EndpointDescriptor
	for i, loc := range locs {
		end := len(content)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		method := content[loc[2]:loc[3]]
		out = append(out, describe(route, method, content[loc[0]:end], rel))
	}
	return out
}

// express handles router.<method>('/path', ...) registrations. Each handler
// body runs until the next registration.
func express(rel, content string) []domain.EndpointDescriptor {
	locs := expressRouteRe.FindAllStringSubmatchIndex(content, -1)
	var out []domain.EndpointDescriptor
	for i, loc := range locs {
		end := len(content)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		method := strings.ToUpper(content[loc[2]:loc[3]])
		route := content[loc[4]:loc[5]]
		if !strings.HasPrefix(route, "/") {
			route = "/" + route
		}
		out = append(out, describe(route, method, content[loc[0]:end], rel))
	}
	return out
}

func describe(route, method, body, source string) domain.EndpointDescriptor {
	return domain.EndpointDescriptor{
		Path:       route,
		Method:     method,
		Parameters: parameters(route, body),
		Response:   response(body),
		Auth:       auth(body),
		Source:     source,
	}
}

// parameters collects path, query and body parameters. Destructured body
// fields without a default are required; everything else is optional.
func parameters(route, body string) []domain.EndpointParameter {
	params := pathParams(route)
	seen := make(map[string]bool)
	for _, p := range params {
		seen[p.Name] = true
	}
	add := func(name, in, typ string, required bool) {
		// Path parameters also surface in req.query under Next.js.
		if name == "" || seen[name] || seen[in+":"+name] {
			return
		}
		seen[in+":"+name] = true
		params = append(params, domain.EndpointParameter{Name: name, In: in, Type: typ, Required: required})
	}

	for _, m := range queryMemberRe.FindAllStringSubmatch(body, -1) {
		add(m[1], "query", "string", false)
	}
	for _, m := range queryGetRe.FindAllStringSubmatch(body, -1) {
		add(m[1], "query", "string", false)
	}
	for _, m := range queryDestructRe.FindAllStringSubmatch(body, -1) {
		for _, f := range destructured(m[1]) {
			add(f.name, "query", "string", false)
		}
	}
	for _, m := range bodyDestructRe.FindAllStringSubmatch(body, -1) {
		for _, f := range destructured(m[1]) {
			add(f.name, "body", "any", !f.hasDefault)
		}
	}
	for _, m := range bodyMemberRe.FindAllStringSubmatch(body, -1) {
		add(m[1], "body", "any", false)
	}

	sort.SliceStable(params, func(i, j int) bool {
		if params[i].In != params[j].In {
			return inOrder(params[i].In) < inOrder(params[j].In)
		}
		return params[i].Name < params[j].Name
	})
	return params
}

func inOrder(in string) int {
	switch in {
	case "path":
		return 0
	case "query":
		return 1
	default:
		return 2
	}
}

type field struct {
	name       string
	hasDefault bool
}

// destructured splits the inside of an object pattern: "a, b = 1, c: d".
func destructured(list string) []field {
	var out []field
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" || strings.HasPrefix(part, "...") {
			continue
		}
		f := field{}
		if i := strings.Index(part, "="); i >= 0 {
			f.hasDefault = true
			part = strings.TrimSpace(part[:i])
		}
		if i := strings.Index(part, ":"); i >= 0 {
			part = strings.TrimSpace(part[:i])
		}
		f.name = part
		out = append(out, f)
	}
	return out
}

// response picks the first 2xx status the handler sets, defaulting to 200,
// and an explicit Content-Type over the reply helper used.
func response(body string) domain.ResponseSchema {
	r := domain.ResponseSchema{StatusCode: 200, ContentType: "application/json"}
	var codes [][]int
	codes = append(codes, statusCallRe.FindAllStringSubmatchIndex(body, -1)...)
	codes = append(codes, statusFieldRe.FindAllStringSubmatchIndex(body, -1)...)
	sort.Slice(codes, func(i, j int) bool { return codes[i][0] < codes[j][0] })
	for _, m := range codes {
		if n, err := strconv.Atoi(body[m[2]:m[3]]); err == nil && n >= 200 && n < 300 {
			r.StatusCode = n
			break
		}
	}

	switch {
	case contentTypeRe.MatchString(body):
		r.ContentType = contentTypeRe.FindStringSubmatch(body)[1]
	case jsonReplyRe.MatchString(body):
	case sendReplyRe.MatchString(body):
		r.ContentType = "text/html"
	}
	return r
}

func auth(body string) domain.AuthRequirement {
	switch {
	case bearerRe.MatchString(body):
		return domain.AuthRequirement{Required: true, Scheme: "bearer"}
	case apiKeyRe.MatchString(body):
		return domain.AuthRequirement{Required: true, Scheme: "api-key"}
	case sessionRe.MatchString(body):
		return domain.AuthRequirement{Required: true, Scheme: "session"}
	case middlewareRe.MatchString(body):
		return domain.AuthRequirement{Required: true, Scheme: "middleware"}
	}
	return domain.AuthRequirement{}
}
