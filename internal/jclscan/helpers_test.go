package jclscan

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

const benchSample = `//B JOB (1),'B',CLASS=A,MSGCLASS=X
// SET COPIER=IEBGENER
//S1 EXEC PGM=SORT
//SYSIN DD *
  SORT  FIELDS=COPY
/*
//SORTWK01 DD UNIT=SYSDA,SPACE=(CYL,(500,50))
//S2 EXEC &COPIER
//SYSUT1 DD DSN=IN,DISP=SHR
//SYSUT2 DD DSN=OUT,DISP=(NEW,CATLG)
`

type nopDiag struct{}

func (nopDiag) Skip(string, string) {}

func writeBench(tb testing.TB, dir string, i int, body string) {
	tb.Helper()
	if err := os.WriteFile(filepath.Join(dir, fmt.Sprintf("B%02d.jcl", i)), []byte(body), 0o644); err != nil {
		tb.Fatal(err)
	}
}
