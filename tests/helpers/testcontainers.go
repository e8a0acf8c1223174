// Package helpers starts the containers used by integration tests and by the
// standalone testcontainers command. Settings come from the environment,
// usually loaded from a .env file.
package helpers

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/docker/docker/api/types/build"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/localnerve/propmarket/data"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"
)

const serviceImage = "propmarket-test:latest"

// TestContainers holds whatever was started so it can be torn down
type TestContainers struct {
	Network                 *testcontainers.DockerNetwork
	DBContainer             testcontainers.Container
	AuthorizerContainer     testcontainers.Container
	ServiceContainer        testcontainers.Container
	ServiceBuilderContainer testcontainers.Container

	// DBHost and DBPort reach the database from the host
	DBHost string
	DBPort string
}

// Terminate stops every started container, newest first
func (tc *TestContainers) Terminate(t *testing.T) {
	ctx := context.Background()
	containers := []struct {
		name string
		c    testcontainers.Container
	}{
		{"propmarket", tc.ServiceContainer},
		{"propmarket builder", tc.ServiceBuilderContainer},
		{"Authorizer", tc.AuthorizerContainer},
		{"MariaDB", tc.DBContainer},
	}
	for _, entry := range containers {
		if entry.c == nil {
			continue
		}
		if err := entry.c.Terminate(ctx); err != nil {
			logMessage(t, "Failed to terminate %s: %v", entry.name, err)
		}
	}
	if tc.Network != nil {
		if err := tc.Network.Remove(ctx); err != nil {
			logMessage(t, "Failed to remove network: %v", err)
		}
	}
}

// CreateDBContainer starts an initialized MariaDB on its own network
func CreateDBContainer(t *testing.T) (*TestContainers, error) {
	ctx := context.Background()
	tc := &TestContainers{}

	nw, err := network.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create network: %w", err)
	}
	tc.Network = nw

	if err := tc.startDB(ctx, t); err != nil {
		tc.Terminate(t)
		return nil, err
	}
	return tc, nil
}

// CreateAllTestContainers starts MariaDB, Authorizer and the service itself.
// The service image is built from the repository Dockerfile when missing.
func CreateAllTestContainers(t *testing.T) (*TestContainers, error) {
	ctx := context.Background()

	tc, err := CreateDBContainer(t)
	if err != nil {
		return nil, err
	}
	if err := tc.startAuthorizer(ctx, t); err != nil {
		tc.Terminate(t)
		return nil, err
	}
	if err := tc.startService(ctx, t); err != nil {
		tc.Terminate(t)
		return nil, err
	}

	logMessage(t, "propmarket testcontainers started successfully")
	return tc, nil
}

func (tc *TestContainers) startDB(ctx context.Context, t *testing.T) error {
	tcpPort, err := nat.NewPort("tcp", getEnv("DB_PORT", "3306"))
	if err != nil {
		return fmt.Errorf("failed to create DB port: %w", err)
	}

	dbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        getEnv("DB_IMAGE", "mariadb:11"),
			ExposedPorts: []string{string(tcpPort)},
			Env: map[string]string{
				"MYSQL_ROOT_PASSWORD": getEnv("DB_ROOT_PASSWORD", "root"),
				"MYSQL_DATABASE":      getEnv("DB_DATABASE", "propmarket"),
			},
			WaitingFor: wait.ForListeningPort(tcpPort).WithStartupTimeout(60 * time.Second),
			Networks:   []string{tc.Network.Name},
			NetworkAliases: map[string][]string{
				tc.Network.Name: {getEnv("DB_HOST", "mariadb")},
			},
		},
		Started: true,
	})
	if err != nil {
		return fmt.Errorf("failed to start MariaDB: %w", err)
	}
	tc.DBContainer = dbContainer

	host, err := dbContainer.Host(ctx)
	if err != nil {
		return err
	}
	mapped, err := dbContainer.MappedPort(ctx, tcpPort)
	if err != nil {
		return err
	}
	tc.DBHost, tc.DBPort = host, mapped.Port()
	logMessage(t, "DB_HOST=%s DB_PORT=%s", tc.DBHost, tc.DBPort)

	return initMariaDB(host, mapped.Port())
}

// initMariaDB creates the databases, the service account and the schema
func initMariaDB(host, port string) error {
	db, err := sql.Open("mysql", fmt.Sprintf("root:%s@tcp(%s:%s)/?multiStatements=false", getEnv("DB_ROOT_PASSWORD", "root"), host, port))
	if err != nil {
		return fmt.Errorf("failed to connect to MariaDB for setup: %w", err)
	}
	defer db.Close()
	// USE in the schema script must apply to every following statement
	db.SetMaxOpenConns(1)

	for i := 0; i < 30; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	if err != nil {
		return fmt.Errorf("MariaDB not ready after 30 seconds: %w", err)
	}

	setup := []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", getEnv("DB_DATABASE", "propmarket")),
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", getEnv("AUTHZ_DATABASE", "authorizer")),
		fmt.Sprintf("CREATE USER IF NOT EXISTS '%s'@'%%' IDENTIFIED BY '%s'", getEnv("DB_USER", "propmarket"), getEnv("DB_PASSWORD", "propmarket")),
	}
	for _, stmt := range setup {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("%w : when executing > %s", err, stmt)
		}
	}

	ensureEnv("DB_DATABASE", "propmarket")
	ensureEnv("DB_USER", "propmarket")
	if err := executeSQL(db, data.Expand(data.InitdbMariaDBTables)); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	if err := executeSQL(db, data.Expand(data.InitdbMariaDBPrivileges)); err != nil {
		return fmt.Errorf("failed to grant privileges: %w", err)
	}
	return nil
}

func (tc *TestContainers) startAuthorizer(ctx context.Context, t *testing.T) error {
	tcpPort, err := nat.NewPort("tcp", getEnv("AUTHZ_PORT", "8080"))
	if err != nil {
		return fmt.Errorf("failed to create Authorizer port: %w", err)
	}

	logLevel := "info"
	if os.Getenv("DEBUG_CONTAINER") == "true" {
		logLevel = "debug"
	}
	dsn := fmt.Sprintf("root:%s@tcp(%s:%s)/%s", getEnv("DB_ROOT_PASSWORD", "root"), getEnv("DB_HOST", "mariadb"), getEnv("DB_PORT", "3306"), getEnv("AUTHZ_DATABASE", "authorizer"))

	authorizerContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        getEnv("AUTHZ_IMAGE", "lakhansamani/authorizer:latest"),
			ExposedPorts: []string{string(tcpPort)},
			Env: map[string]string{
				"ENV":           "production",
				"CLIENT_ID":     os.Getenv("AUTHZ_CLIENT_ID"),
				"PORT":          tcpPort.Port(),
				"DATABASE_TYPE": "mariadb",
				"DATABASE_NAME": getEnv("AUTHZ_DATABASE", "authorizer"),
				"DATABASE_URL":  dsn,
				"ADMIN_SECRET":  os.Getenv("AUTHZ_ADMIN_SECRET"),
				"ROLES":         "admin,agent,client",
				"DEFAULT_ROLES": "client",
				"LOG_LEVEL":     logLevel,
			},
			WaitingFor: wait.ForLog("Authorizer running at PORT:").WithStartupTimeout(30 * time.Second),
			Networks:   []string{tc.Network.Name},
			NetworkAliases: map[string][]string{
				tc.Network.Name: {"authorizer"},
			},
		},
		Started: true,
	})
	if err != nil {
		return fmt.Errorf("failed to start Authorizer: %w", err)
	}
	tc.AuthorizerContainer = authorizerContainer

	host, _ := authorizerContainer.Host(ctx)
	port, _ := authorizerContainer.MappedPort(ctx, tcpPort)
	logMessage(t, "AUTHZ_URL=http://%s:%s", host, port.Port())
	return nil
}

func (tc *TestContainers) startService(ctx context.Context, t *testing.T) error {
	debug := os.Getenv("DEBUG_CONTAINER") == "true"

	tcpPort, err := nat.NewPort("tcp", getEnv("PORT", "3000"))
	if err != nil {
		return fmt.Errorf("failed to create service port: %w", err)
	}
	exposed := []string{string(tcpPort)}
	if debug {
		exposed = append(exposed, "2345/tcp")
	}

	var waitStrategy wait.Strategy = wait.ForHTTP("/metrics").WithPort(tcpPort).WithStartupTimeout(30 * time.Second)
	if debug {
		waitStrategy = wait.ForLog("API server listening at: [::]:2345").WithStartupTimeout(5 * time.Minute)
	}

	req := testcontainers.ContainerRequest{
		ExposedPorts: exposed,
		Env: map[string]string{
			"DB_TYPE":             "mysql",
			"DB_HOST":             getEnv("DB_HOST", "mariadb"),
			"DB_PORT":             getEnv("DB_PORT", "3306"),
			"DB_DATABASE":         getEnv("DB_DATABASE", "propmarket"),
			"DB_USER":             getEnv("DB_USER", "propmarket"),
			"DB_PASSWORD":         getEnv("DB_PASSWORD", "propmarket"),
			"DB_CONNECTION_LIMIT": getEnv("DB_CONNECTION_LIMIT", "10"),
			"AUTHZ_URL":           fmt.Sprintf("http://authorizer:%s", getEnv("AUTHZ_PORT", "8080")),
			"AUTHZ_CLIENT_ID":     os.Getenv("AUTHZ_CLIENT_ID"),
			"MAIL_PROVIDERS":      "log",
			"LOG_LEVEL":           getEnv("LOG_LEVEL", "info"),
			"PORT":                tcpPort.Port(),
		},
		HostConfigModifier: func(hostConfig *container.HostConfig) {
			if debug {
				hostConfig.PortBindings = nat.PortMap{
					"2345/tcp": []nat.PortBinding{{HostIP: "127.0.0.1", HostPort: "2345"}},
				}
				hostConfig.CapAdd = []string{"SYS_PTRACE"}
				hostConfig.SecurityOpt = []string{"apparmor:unconfined"}
			}
		},
		WaitingFor: waitStrategy,
		Networks:   []string{tc.Network.Name},
	}
	if debug {
		req.Entrypoint = []string{
			"/usr/local/bin/dlv", "--listen=:2345", "--headless=true",
			"--api-version=2", "--accept-multiclient", "exec", "./propmarket",
		}
	}

	exists, err := imageExists(ctx, serviceImage)
	if err != nil {
		return fmt.Errorf("failed to check if image exists: %w", err)
	}
	if exists {
		logMessage(t, "Image %s exists, reusing...", serviceImage)
		req.Image = serviceImage
	} else {
		logMessage(t, "Image %s does not exist, building...", serviceImage)
		fromDockerfile, err := tc.buildService(ctx, debug)
		if err != nil {
			return err
		}
		req.FromDockerfile = fromDockerfile
	}

	serviceContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return fmt.Errorf("failed to start propmarket: %w", err)
	}
	tc.ServiceContainer = serviceContainer

	host, _ := serviceContainer.Host(ctx)
	port, _ := serviceContainer.MappedPort(ctx, tcpPort)
	logMessage(t, "BASE_URL=http://%s:%s", host, port.Port())
	return nil
}

// buildService builds the builder stage and returns the runtime stage request
func (tc *TestContainers) buildService(ctx context.Context, debug bool) (testcontainers.FromDockerfile, error) {
	sessionID := uuid.New().String()
	buildArgs := map[string]*string{"RESOURCE_REAPER_SESSION_ID": &sessionID}
	if debug {
		flag := "true"
		buildArgs["DEBUG"] = &flag
	}
	buildContext := getEnv("TESTCONTAINERS_BUILD_CONTEXT", "../..")

	builder, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			FromDockerfile: testcontainers.FromDockerfile{
				Context:    buildContext,
				Dockerfile: "Dockerfile",
				Repo:       "propmarket-test-builder",
				Tag:        "latest",
				BuildArgs:  buildArgs,
				BuildOptionsModifier: func(opts *build.ImageBuildOptions) {
					opts.Target = "builder"
				},
				PrintBuildLog: true,
			},
		},
		Started: false,
	})
	if err != nil {
		return testcontainers.FromDockerfile{}, fmt.Errorf("failed to build propmarket-test-builder: %w", err)
	}
	tc.ServiceBuilderContainer = builder

	repo, tag, _ := strings.Cut(serviceImage, ":")
	return testcontainers.FromDockerfile{
		Context:    buildContext,
		Dockerfile: "Dockerfile",
		Repo:       repo,
		Tag:        tag,
		KeepImage:  true,
		BuildArgs:  buildArgs,
		BuildOptionsModifier: func(opts *build.ImageBuildOptions) {
			opts.Target = "runtime"
		},
		PrintBuildLog: true,
	}, nil
}

// executeSQL runs a script statement by statement. Full-line "--" comments
// are dropped; statements end with a semicolon.
func executeSQL(db *sql.DB, script string) error {
	var kept []string
	for _, line := range strings.Split(script, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		kept = append(kept, line)
	}

	for _, stmt := range strings.Split(strings.Join(kept, "\n"), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("%w : when executing > %s", err, stmt)
		}
	}
	return nil
}

func imageExists(ctx context.Context, imageName string) (bool, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return false, err
	}
	defer cli.Close()

	images, err := cli.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return false, err
	}
	for _, img := range images {
		for _, tag := range img.RepoTags {
			if tag == imageName {
				return true, nil
			}
		}
	}
	return false, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// ensureEnv sets key when it is unset so init scripts expand to the defaults
func ensureEnv(key, defaultValue string) {
	if os.Getenv(key) == "" {
		os.Setenv(key, defaultValue)
	}
}

func logMessage(t *testing.T, format string, args ...any) {
	if t != nil {
		t.Logf(format, args...)
	} else {
		fmt.Printf(format+"\n", args...)
	}
}
