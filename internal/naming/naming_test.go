package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWords(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{"user_profile", []string{"user", "profile"}},
		{"get_userById", []string{"get", "user", "By", "Id"}},
		{"APIClient", []string{"API", "Client"}},
		{"/repos/{owner}/{repo}", []string{"repos", "owner", "repo"}},
		{"api_v2_client", []string{"api", "v2", "client"}},
		{"v2Users", []string{"v2", "Users"}},
		{"__", nil},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Words(tt.input))
		})
	}
}

func TestToPascalCase(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty string", input: "", want: ""},
		{name: "single lowercase letter", input: "a", want: "A"},
		{name: "snake_case simple", input: "user_profile", want: "UserProfile"},
		{name: "snake_case three words", input: "get_user_by_id", want: "GetUserById"},
		{name: "leading underscore", input: "_private", want: "Private"},
		{name: "double underscore", input: "double__under", want: "DoubleUnder"},
		{name: "kebab-case simple", input: "api-client", want: "ApiClient"},
		{name: "dot separator", input: "com.example.api", want: "ComExampleApi"},
		{name: "path-like", input: "/api/v1/users", want: "ApiV1Users"},
		{name: "path with template", input: "/repos/{owner}/{repo}", want: "ReposOwnerRepo"},
		{name: "mixed separators", input: "get_user-by.id/name", want: "GetUserByIdName"},
		{name: "already PascalCase", input: "UserProfile", want: "UserProfile"},
		{name: "all caps", input: "API", want: "API"},
		{name: "camelCase", input: "userProfile", want: "UserProfile"},
		{name: "unicode lowercase", input: "über_user", want: "ÜberUser"},
		{name: "japanese characters", input: "日本語_test", want: "日本語Test"},
		{name: "leading number", input: "123_abc", want: "123Abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToPascalCase(tt.input))
		})
	}
}

func TestToCamelCase(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"user_profile", "userProfile"},
		{"UserProfile", "userProfile"},
		{"APIClient", "apiClient"},
		{"get /pets/{petId}", "getPetsPetId"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ToCamelCase(tt.input))
		})
	}
}

func TestToGoName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"get_user_by_id", "GetUserByID"},
		{"repos/get-content", "ReposGetContent"},
		{"listPets", "ListPets"},
		{"getApiUrl", "GetAPIURL"},
		{"404_handler", "X404Handler"},
		{"oauth_token", "OauthToken"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ToGoName(tt.input))
		})
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"UserProfile", "user_profile"},
		{"APIClient", "api_client"},
		{"HTTPServer2", "http_server2"},
		{"client-secret", "client_secret"},
		{"already_snake", "already_snake"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ToSnakeCase(tt.input))
		})
	}
}

func TestToKebabCase(t *testing.T) {
	assert.Equal(t, "user-profile", ToKebabCase("UserProfile"))
	assert.Equal(t, "api-client", ToKebabCase("api_client"))
	assert.Equal(t, "", ToKebabCase(""))
}

func TestToEnvName(t *testing.T) {
	tests := []struct {
		prefix string
		key    string
		want   string
	}{
		{"EXAMPLE", "client-secret", "EXAMPLE_CLIENT_SECRET"},
		{"example_", "apiKey", "EXAMPLE_API_KEY"},
		{"", "token", "TOKEN"},
		{"APP", "", "APP"},
	}
	for _, tt := range tests {
		t.Run(tt.prefix+"/"+tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, ToEnvName(tt.prefix, tt.key))
		})
	}
}

func TestToTitleCase(t *testing.T) {
	assert.Equal(t, "", ToTitleCase(""))
	assert.Equal(t, "Hello", ToTitleCase("hello"))
	assert.Equal(t, "Hello world", ToTitleCase("hello world"))
	assert.Equal(t, "Über", ToTitleCase("über"))
}
