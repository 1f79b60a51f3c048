package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesikahq/hospital-records/internal/records"
	"github.com/mesikahq/hospital-records/internal/store"
)

type Config struct {
	Data struct {
		Dir              string `yaml:"dir" mapstructure:"dir"`
		PatientsFile     string `yaml:"patients_file" mapstructure:"patients_file"`
		DoctorsFile      string `yaml:"doctors_file" mapstructure:"doctors_file"`
		AppointmentsFile string `yaml:"appointments_file" mapstructure:"appointments_file"`
		Indent           int    `yaml:"indent" mapstructure:"indent"`
	} `yaml:"data" mapstructure:"data"`

	Audit struct {
		File string `yaml:"file" mapstructure:"file"`
	} `yaml:"audit" mapstructure:"audit"`

	Log struct {
		File        string `yaml:"file" mapstructure:"file"`
		Level       string `yaml:"level" mapstructure:"level"`
		Development bool   `yaml:"development" mapstructure:"development"`
	} `yaml:"log" mapstructure:"log"`

	Security struct {
		HashPasswords bool `yaml:"hash_passwords" mapstructure:"hash_passwords"`
		BcryptCost    int  `yaml:"bcrypt_cost" mapstructure:"bcrypt_cost"`
	} `yaml:"security" mapstructure:"security"`

	Seed struct {
		DefaultDoctor struct {
			ID             int    `yaml:"id" mapstructure:"id"`
			Name           string `yaml:"name" mapstructure:"name"`
			Specialization string `yaml:"specialization" mapstructure:"specialization"`
			Password       string `yaml:"password" mapstructure:"password"`
		} `yaml:"default_doctor" mapstructure:"default_doctor"`
	} `yaml:"seed" mapstructure:"seed"`

	Export struct {
		Dir string `yaml:"dir" mapstructure:"dir"`
	} `yaml:"export" mapstructure:"export"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	var c Config
	c.Data.Dir = "."
	c.Data.PatientsFile = "patients.json"
	c.Data.DoctorsFile = "doctors.json"
	c.Data.AppointmentsFile = "appointments.json"
	c.Data.Indent = 4
	c.Audit.File = "hospital_management.log"
	c.Log.Level = "info"
	c.Seed.DefaultDoctor.ID = 1001
	c.Seed.DefaultDoctor.Name = "Dr. Admin"
	c.Seed.DefaultDoctor.Specialization = "Administrator"
	c.Seed.DefaultDoctor.Password = "admin123"
	c.Export.Dir = "."
	return &c
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("data.dir", d.Data.Dir)
	v.SetDefault("data.patients_file", d.Data.PatientsFile)
	v.SetDefault("data.doctors_file", d.Data.DoctorsFile)
	v.SetDefault("data.appointments_file", d.Data.AppointmentsFile)
	v.SetDefault("data.indent", d.Data.Indent)
	v.SetDefault("audit.file", d.Audit.File)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.development", d.Log.Development)
	v.SetDefault("security.hash_passwords", d.Security.HashPasswords)
	v.SetDefault("security.bcrypt_cost", d.Security.BcryptCost)
	v.SetDefault("seed.default_doctor.id", d.Seed.DefaultDoctor.ID)
	v.SetDefault("seed.default_doctor.name", d.Seed.DefaultDoctor.Name)
	v.SetDefault("seed.default_doctor.specialization", d.Seed.DefaultDoctor.Specialization)
	v.SetDefault("seed.default_doctor.password", d.Seed.DefaultDoctor.Password)
	v.SetDefault("export.dir", d.Export.Dir)
}

// Load reads config.yaml from the first of ./configs, $HOME/.hms and
// /etc/hms that has one, or from file when it is not empty. HMS_ prefixed
// environment variables override file values, e.g. HMS_DATA_DIR.
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("HMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".hms"))
		}
		v.AddConfigPath("/etc/hms")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if c.Data.PatientsFile == "" || c.Data.DoctorsFile == "" || c.Data.AppointmentsFile == "" {
		return fmt.Errorf("data file names must not be empty")
	}
	if c.Data.Indent < 0 {
		return fmt.Errorf("data.indent must not be negative")
	}
	return nil
}

// Files resolves the collection file names against the data directory.
func (c *Config) Files() store.Files {
	return store.Files{
		Patients:     c.resolve(c.Data.PatientsFile),
		Doctors:      c.resolve(c.Data.DoctorsFile),
		Appointments: c.resolve(c.Data.AppointmentsFile),
		Indent:       c.Data.Indent,
	}
}

// AuditFile resolves the audit log path against the data directory.
func (c *Config) AuditFile() string {
	return c.resolve(c.Audit.File)
}

func (c *Config) DefaultDoctor() records.Doctor {
	d := c.Seed.DefaultDoctor
	return records.Doctor{ID: d.ID, Name: d.Name, Specialization: d.Specialization, Password: d.Password}
}

func (c *Config) resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Data.Dir, name)
}

// WriteDefault renders the default configuration to path. An existing file
// is left alone unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(Default()); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
