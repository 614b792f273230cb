package config // package config loads application configuration from environment variables

import (
    "log"      // log is used to report configuration errors and halt execution
    "os"       // os provides access to environment variables
    "strconv"  // strconv converts strings to other types
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations and costs.
type Config struct {
    Env               string // application environment (e.g. "dev", "prod")
    Port              string // HTTP port to listen on
    DBUser            string // database username
    DBPass            string // database password (optional)
    DBHost            string // database host address
    DBPort            string // database port number
    DBName            string // database name
    JWTSecret         string // secret used to sign JWTs
    AccessTTLMin      int    // access token time‑to‑live in minutes
    RefreshTTLDays    int    // refresh token time‑to‑live in days
    BcryptCost        int    // bcrypt cost for password hashing
    PaystackSecretKey string // gateway secret key; signs webhooks and authorizes API calls
    PaystackPublicKey string // gateway public key, exposed to checkout pages
    FrontendBaseURL   string // base URL of the frontend, used to build the payment callback
    Currency          string // ISO currency code for all charges
    CheckoutWindowMin int    // minutes before an unconfirmed purchase attempt expires
    SMTPHost          string // SMTP relay host for ticket emails (optional)
    SMTPPort          string // SMTP relay port
    SMTPUser          string // SMTP username (optional; empty disables auth)
    SMTPPass          string // SMTP password
    SMTPFrom          string // From address for ticket emails
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
    return Config{
        Env:               must("APP_ENV"),             // environment (dev/test/prod)
        Port:              must("APP_PORT"),            // port to bind the HTTP server
        DBUser:            must("DB_USER"),             // database user
        DBPass:            os.Getenv("DB_PASS"),        // database password (empty allowed)
        DBHost:            must("DB_HOST"),             // database host
        DBPort:            must("DB_PORT"),             // database port
        DBName:            must("DB_NAME"),             // database name
        JWTSecret:         must("JWT_SECRET"),          // secret used for signing JWTs
        AccessTTLMin:      mustInt("ACCESS_TOKEN_TTL_MIN"),   // TTL for access tokens in minutes
        RefreshTTLDays:    mustInt("REFRESH_TOKEN_TTL_DAYS"), // TTL for refresh tokens in days
        BcryptCost:        mustInt("BCRYPT_COST"),      // bcrypt cost factor
        PaystackSecretKey: must("PAYSTACK_SECRET_KEY"), // gateway secret (HMAC + API auth)
        PaystackPublicKey: os.Getenv("PAYSTACK_PUBLIC_KEY"), // gateway public key (optional)
        FrontendBaseURL:   must("FRONTEND_BASE_URL"),   // callback URL base
        Currency:          getenv("CURRENCY", "NGN"),   // charge currency
        CheckoutWindowMin: intOr("CHECKOUT_WINDOW_MIN", 30), // checkout expiry window
        SMTPHost:          os.Getenv("SMTP_HOST"),      // mail relay host (optional)
        SMTPPort:          getenv("SMTP_PORT", "587"),  // mail relay port
        SMTPUser:          os.Getenv("SMTP_USER"),      // mail relay user
        SMTPPass:          os.Getenv("SMTP_PASS"),      // mail relay password
        SMTPFrom:          os.Getenv("SMTP_FROM"),      // mail From address
    }
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}

// intOr returns an optional integer variable or the default when the
// variable is unset or malformed.
func intOr(key string, def int) int {
    v := os.Getenv(key)
    if v == "" {
        return def
    }
    n, err := strconv.Atoi(v)
    if err != nil {
        return def
    }
    return n
}
