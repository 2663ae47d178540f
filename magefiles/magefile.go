//go:build mage

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/joho/godotenv"
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

var binaries = map[string]string{
	"bin/cpsdct":        "./cmd/cpsdct",
	"bin/cpsdct-server": "./cmd/server",
}

// Dbup runs dbmate to apply db migrations
func Dbup() error {
	if _, err := exec.LookPath("dbmate"); err != nil {
		fmt.Println(">> dbmate not found; install with:")
		fmt.Println("   go install github.com/amacneil/dbmate/v2@latest")
		return err
	}
	fmt.Println(">> dbmate up")
	return sh.Run("dbmate", "up")
}

// Build tidies deps, then compiles ./bin/cpsdct and ./bin/cpsdct-server.
func Build() error {
	mg.Deps(Tidy)
	for out, pkg := range binaries {
		fmt.Println(">> Building", out, "...")
		if err := sh.Run("go", "build", "-o", out, pkg); err != nil {
			return err
		}
	}
	return nil
}

// Run builds then executes the web server.
func Run() error {
	mg.Deps(Build)
	fmt.Println(">> Starting server on :" + port() + " ...")
	return sh.Run("./bin/cpsdct-server")
}

// Dev starts the server via go run.
func Dev() error {
	fmt.Println(">> Dev mode: go run ./cmd/server ...")
	cmd := exec.Command("go", "run", "./cmd/server")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(), "PORT="+port(), "LOG_LEVEL=debug")
	return cmd.Run()
}

// Dicts downloads everything and regenerates the dictionaries with codebooks.
func Dicts() error {
	fmt.Println(">> cpsdct run --pdf --xlsx ...")
	return sh.RunV("go", "run", "./cmd/cpsdct", "run", "--pdf", "--xlsx")
}

// Tidy runs go mod tidy.
func Tidy() error {
	fmt.Println(">> go mod tidy...")
	return sh.Run("go", "mod", "tidy")
}

// Test runs all unit tests.
func Test() error {
	fmt.Println(">> Running tests...")
	return sh.Run("go", "test", "./...")
}

// Lint runs golangci-lint if available.
func Lint() error {
	if _, err := exec.LookPath("golangci-lint"); err != nil {
		fmt.Println(">> golangci-lint not found; skipping.")
		return nil
	}
	return sh.Run("golangci-lint", "run", "./...")
}

// Clean removes build artifacts and the local SQLite DB.
func Clean() error {
	fmt.Println(">> Cleaning...")
	os.RemoveAll("bin")
	db := os.Getenv("DB_PATH")
	if db == "" {
		db = "cpsdct.db"
	}
	return sh.Rm(db)
}

// Install builds and installs both binaries to $GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	return sh.Run("go", "install", "./cmd/cpsdct", "./cmd/server")
}

func port() string {
	if p := os.Getenv("PORT"); p != "" {
		return p
	}
	return "8080"
}

func init() {
	err := godotenv.Load()
	if err != nil {
		slog.Warn("error loading .env file", "err", err)
	}
}
