package rules

// defaultUnknownWeight applies to callees with no propagation rule. It can
// be overridden from configuration via Set.SetUnknownWeight.
const defaultUnknownWeight = 0.4

// Built-in packs. Every framework pack starts from the generic pack and
// layers framework-specific patterns on top; the generic entries always
// remain so that plain-PHP idioms inside framework code still classify.

var genericSources = []SourceSpec{
	{Kind: "http_host", Pattern: `\$_SERVER\s*\[\s*['"]HTTP_HOST['"]\s*\]`, Confidence: 1.0},
	{Kind: "server_name", Pattern: `\$_SERVER\s*\[\s*['"]SERVER_NAME['"]\s*\]`, Confidence: 1.0},
	{Kind: "forwarded_host", Pattern: `HTTP_X_FORWARDED_HOST|X-Forwarded-Host|FORWARDED_HOST`, Confidence: 0.8},
	{Kind: "host_accessor", Pattern: `\b(getHost|getHttpHost|getSchemeAndHttpHost|getServerName)\s*\(`, Confidence: 0.9},
}

var genericSinks = []SinkSpec{
	{Kind: "authentication", Pattern: `\b(wp_login_url|wp_logout_url|login_url|logout_url)\s*\(`},
	{Kind: "redirect", Pattern: `\bheader\s*\(\s*['"]Location`},
	{Kind: "redirect", Pattern: `\b(redirect|wp_safe_redirect|wp_redirect)\s*\(|RedirectResponse`},
	{Kind: "mail", Pattern: `\b(mail|wp_mail|mb_send_mail)\s*\(`},
	{Kind: "response_header", Pattern: `\bheader\s*\(`},
	{Kind: "template_render", Pattern: `\b(render|view|display|include_template)\s*\(`},
	{Kind: "url_generation", Pattern: `\b(url|route|generateUrl|createUrl|base_url|site_url|home_url|admin_url|esc_url|asset|secure_url)\s*\(`},
}

var genericGuards = []string{
	`trusted[_-]?proxies`,
	`trusted[_-]?hosts`,
	`setTrustedProxies`,
	`setTrustedHosts`,
	`forceRootUrl`,
	`FILTER_VALIDATE_DOMAIN`,
	`allowed[_-]?hosts`,
	`preg_match\s*\(.*(allowed|trusted).*host`,
}

var genericValidations = []string{
	`filter_var\s*\(`,
	`htmlspecialchars\s*\(`,
	`strip_tags\s*\(`,
	`preg_replace\s*\(`,
	`preg_match\s*\(`,
	`\bvalidate\s*\(`,
	`\bsanitize\w*\s*\(`,
	`\bis_string\s*\(`,
	`FILTER_VALIDATE`,
}

var genericFunctions = map[string]FnSpec{
	// URL builders keep the host reachable in their output.
	"url":          {Policy: "preserving", Weight: 0.9},
	"route":        {Policy: "preserving", Weight: 0.9},
	"redirect":     {Policy: "preserving", Weight: 0.9},
	"generateurl":  {Policy: "preserving", Weight: 0.9},
	"createurl":    {Policy: "preserving", Weight: 0.9},
	"home_url":     {Policy: "preserving", Weight: 0.9},
	"site_url":     {Policy: "preserving", Weight: 0.9},
	"admin_url":    {Policy: "preserving", Weight: 0.9},
	"base_url":     {Policy: "preserving", Weight: 0.9},
	"esc_url":      {Policy: "preserving", Weight: 0.9},
	"wp_login_url": {Policy: "preserving", Weight: 0.9},
	"wp_logout_url": {Policy: "preserving", Weight: 0.9},
	"sprintf":      {Policy: "preserving", Weight: 0.9},
	"trim":         {Policy: "preserving", Weight: 0.9},
	"strtolower":   {Policy: "preserving", Weight: 0.9},

	// Sanitizers stop propagation.
	"filter_var":          {Policy: "removing", Weight: 0},
	"htmlspecialchars":    {Policy: "removing", Weight: 0},
	"strip_tags":          {Policy: "removing", Weight: 0},
	"preg_replace":        {Policy: "removing", Weight: 0},
	"sanitize_text_field": {Policy: "removing", Weight: 0},
	"sanitize_url":        {Policy: "removing", Weight: 0},
	"esc_html":            {Policy: "removing", Weight: 0},
	"esc_attr":            {Policy: "removing", Weight: 0},
	"intval":              {Policy: "removing", Weight: 0},
}

func genericSpec() *FileSpec {
	return &FileSpec{
		Framework:   "generic",
		Sources:     append([]SourceSpec(nil), genericSources...),
		Sinks:       append([]SinkSpec(nil), genericSinks...),
		Guards:      append([]string(nil), genericGuards...),
		Validations: append([]string(nil), genericValidations...),
		Functions:   cloneFns(genericFunctions),
	}
}

func cloneFns(m map[string]FnSpec) map[string]FnSpec {
	out := make(map[string]FnSpec, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// extend produces a framework pack: generic patterns plus the additions.
// Framework sinks and sources are matched before the generic ones.
func extend(name string, add FileSpec) *FileSpec {
	base := genericSpec()
	base.Framework = name
	base.Sources = append(append([]SourceSpec(nil), add.Sources...), base.Sources...)
	base.Sinks = append(append([]SinkSpec(nil), add.Sinks...), base.Sinks...)
	base.Guards = append(base.Guards, add.Guards...)
	base.Validations = append(base.Validations, add.Validations...)
	for k, v := range add.Functions {
		base.Functions[k] = v
	}
	return base
}

var builtinSpecs = map[string]*FileSpec{
	"generic": genericSpec(),

	"laravel": extend("laravel", FileSpec{
		Sources: []SourceSpec{
			{Kind: "host_accessor", Pattern: `request\s*\(\s*\)\s*->\s*(getHost|getHttpHost|getSchemeAndHttpHost)\s*\(`, Confidence: 0.9},
		},
		Sinks: []SinkSpec{
			{Kind: "url_generation", Pattern: `URL::(to|full|current|route)\s*\(`},
			{Kind: "redirect", Pattern: `Redirect::(to|away|route)\s*\(`},
			{Kind: "mail", Pattern: `Mail::(to|send)\s*\(`},
			{Kind: "template_render", Pattern: `\bview\s*\(|Blade::render\s*\(`},
		},
		Guards: []string{
			`TrustProxies`,
			`TrustHosts`,
			`URL::forceRootUrl`,
			`APP_URL`,
		},
		Functions: map[string]FnSpec{
			"secure_url": {Policy: "preserving", Weight: 0.9},
			"asset":      {Policy: "preserving", Weight: 0.9},
		},
	}),

	"symfony": extend("symfony", FileSpec{
		Sources: []SourceSpec{
			{Kind: "host_accessor", Pattern: `\$request\s*->\s*(getHost|getHttpHost|getSchemeAndHttpHost)\s*\(`, Confidence: 0.9},
		},
		Sinks: []SinkSpec{
			{Kind: "url_generation", Pattern: `\b(generateUrl|generate)\s*\(|UrlGeneratorInterface`},
			{Kind: "redirect", Pattern: `\bredirectToRoute\s*\(|new\s+RedirectResponse`},
			{Kind: "template_render", Pattern: `->\s*render\s*\(|twig\s*->\s*render`},
		},
		Guards: []string{
			`trusted_hosts`,
			`setTrustedHosts`,
			`Request::setTrustedProxies`,
		},
	}),

	"wordpress": extend("wordpress", FileSpec{
		Sinks: []SinkSpec{
			{Kind: "authentication", Pattern: `\b(wp_login_url|wp_logout_url|wp_lostpassword_url|wp_registration_url)\s*\(`},
			{Kind: "redirect", Pattern: `\b(wp_safe_redirect|wp_redirect)\s*\(`},
			{Kind: "mail", Pattern: `\bwp_mail\s*\(`},
			{Kind: "url_generation", Pattern: `\b(home_url|site_url|admin_url|network_home_url|network_site_url|get_site_url|get_home_url|esc_url)\s*\(`},
		},
		Guards: []string{
			`WP_HOME`,
			`WP_SITEURL`,
			`allowed_redirect_hosts`,
		},
		Functions: map[string]FnSpec{
			"network_home_url": {Policy: "preserving", Weight: 0.9},
			"network_site_url": {Policy: "preserving", Weight: 0.9},
			"esc_url_raw":      {Policy: "preserving", Weight: 0.9},
			"sanitize_key":     {Policy: "removing", Weight: 0},
		},
	}),

	"codeigniter": extend("codeigniter", FileSpec{
		Sources: []SourceSpec{
			{Kind: "http_host", Pattern: `->\s*server\s*\(\s*['"]HTTP_HOST['"]\s*\)`, Confidence: 1.0},
			{Kind: "host_accessor", Pattern: `\$request\s*->\s*getServer\s*\(`, Confidence: 0.9},
		},
		Sinks: []SinkSpec{
			{Kind: "url_generation", Pattern: `\b(base_url|site_url|current_url|anchor)\s*\(`},
			{Kind: "redirect", Pattern: `redirect\s*\(\s*\)\s*->\s*to\s*\(`},
		},
		Guards: []string{
			`baseURL`,
			`allowedHostnames`,
		},
		Functions: map[string]FnSpec{
			"current_url": {Policy: "preserving", Weight: 0.9},
			"anchor":      {Policy: "preserving", Weight: 0.9},
		},
	}),

	"cakephp": extend("cakephp", FileSpec{
		Sources: []SourceSpec{
			{Kind: "host_accessor", Pattern: `\$this\s*->\s*request\s*->\s*host\s*\(`, Confidence: 0.9},
		},
		Sinks: []SinkSpec{
			{Kind: "url_generation", Pattern: `Router::(url|fullBaseUrl|reverse)\s*\(`},
			{Kind: "redirect", Pattern: `\$this\s*->\s*redirect\s*\(`},
		},
		Guards: []string{
			`fullBaseUrl`,
			`App\.fullBaseUrl`,
		},
	}),

	"yii2": extend("yii2", FileSpec{
		Sources: []SourceSpec{
			{Kind: "host_accessor", Pattern: `->\s*(getHostInfo|getHostName)\s*\(|request\s*->\s*hostInfo`, Confidence: 0.9},
		},
		Sinks: []SinkSpec{
			{Kind: "url_generation", Pattern: `Url::(to|toRoute|base|home|current)\s*\(|\bcreateAbsoluteUrl\s*\(`},
			{Kind: "redirect", Pattern: `\$this\s*->\s*redirect\s*\(|->\s*response\s*->\s*redirect\s*\(`},
		},
		Guards: []string{
			`hostInfo`,
			`setHostInfo`,
		},
		Functions: map[string]FnSpec{
			"createabsoluteurl": {Policy: "preserving", Weight: 0.9},
		},
	}),
}
