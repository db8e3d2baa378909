package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"course_commerce/internal/config"
	"course_commerce/internal/model"
	"course_commerce/internal/purchase"
	"course_commerce/pkg/logging"
)

func main() {
	siteDomain := flag.String("site-domain", "", "domain of the site where the purchase is being made")
	courseID := flag.String("course-id", "", "course ID to be purchased for the user")
	sku := flag.String("sku", "", "SKU of the course to be purchased")
	lmsUserID := flag.Int64("lms-user-id", 0, "ID of the purchasing user as in LMS")
	amount := flag.String("amount", "", "purchase amount, defaults to the stock record retail price")
	commit := flag.String("commit", "no", "commit changes (yes/no), default no performs a dry run")
	note := flag.String("note", "", "note to be added to the purchase")
	submitDate := flag.String("submit-date", "", "date the purchase is submitted (YYYY-MM-DD)")
	flag.Parse()

	if *siteDomain == "" || *courseID == "" || *sku == "" || *lmsUserID == 0 {
		fmt.Fprintln(os.Stderr, "site-domain, course-id, sku and lms-user-id are required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logging.Init(true)

	db, err := gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "db open: %v\n", err)
		os.Exit(1)
	}
	if err := model.Migrate(db); err != nil {
		fmt.Fprintf(os.Stderr, "db migrate: %v\n", err)
		os.Exit(1)
	}

	orc := purchase.New(db, purchase.Options{
		SupportedCurrencies: cfg.SupportedCurrencies,
		ManualOrderPrefix:   cfg.ManualOrderPrefix,
		Confirm:             promptConfirm,
		Trace:               os.Stdout,
		Log:                 logging.Logger(),
	})

	rule := strings.Repeat("-", 80)
	fmt.Println(rule)
	_, err = orc.Run(purchase.Request{
		SiteDomain: *siteDomain,
		CourseID:   *courseID,
		SKU:        *sku,
		LMSUserID:  *lmsUserID,
		Amount:     *amount,
		Note:       *note,
		SubmitDate: *submitDate,
		Commit:     strings.ToLower(*commit) == "yes",
		CreatedBy:  "cli create_purchase",
	})
	switch {
	case err == nil:
		fmt.Println(rule)
	case purchase.IsDomain(err):
		// Expected precondition failure: report and stop, no stack.
		fmt.Printf("ERROR: %s\n", err)
		fmt.Println(rule)
	default:
		fmt.Println("ERROR: unexpected failure")
		fmt.Println(rule)
		logging.Logger().Error().Err(err).Msg("create purchase failed")
		os.Exit(1)
	}
}

// promptConfirm shows the write summary and requires a literal "yes".
func promptConfirm(summary string) (bool, error) {
	fmt.Printf("%s confirmation! %s\n", strings.Repeat("-", 20), strings.Repeat("-", 20))
	fmt.Print(summary)

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false, err
	}
	return strings.ToLower(strings.TrimSpace(line)) == "yes", nil
}
