package testutil

import (
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/ceresdev/academico/core"
	"github.com/ceresdev/academico/core/user"
)

// Logger is a plain stdout core.Logger for tests.
type Logger struct {
	std *log.Logger
}

var _ core.Logger = (*Logger)(nil)

func NewLogger() *Logger {
	return &Logger{std: log.New(os.Stdout, "TEST : ", log.LstdFlags)}
}

func (l Logger) Enable(bool) {}

func (l Logger) print(msg string, args []interface{}) {
	l.std.Println(msg)
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}

func (l Logger) Debug(msg string, args ...interface{}) { l.print(msg, args) }
func (l Logger) Info(msg string, args ...interface{})  { l.print(msg, args) }
func (l Logger) Warn(msg string, args ...interface{})  { l.print(msg, args) }
func (l Logger) Error(msg string, args ...interface{}) { l.print(msg, args) }
func (l Logger) Fatal(msg string, args ...interface{}) { l.print(msg, args); l.std.Fatal(msg) }

// Config loads the configuration and forces test mode.
func Config() *core.Config {
	conf := core.NewConfig()
	conf.TestMode = true
	conf.Debug = false
	return conf
}

// NewValidators returns a validator and translator with all the app's
// custom rules and translations registered.
func NewValidators() (*validator.Validate, ut.Translator) {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")

	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	user.LoadCommonPasswords(NewLogger())
	return validate, translator
}
