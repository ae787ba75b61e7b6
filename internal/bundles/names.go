package bundles

import (
	"strconv"
	"strings"

	"resume-tailor/internal/shared/util"
	"resume-tailor/resume/model"
)

const maxOwnerStem = 80

// ownerParts returns the first and last name tokens of a full name.
func ownerParts(name string) []string {
	fields := strings.Fields(name)
	switch len(fields) {
	case 0:
		return nil
	case 1:
		return fields
	default:
		return []string{fields[0], fields[len(fields)-1]}
	}
}

// JobFileStem names a job's archive entries First_Last_Company_Year_<jobid>.
func JobFileStem(owner, company, jobID string, year int) string {
	parts := append(ownerParts(owner), company, strconv.Itoa(year))
	prefix := util.FileStem(strings.Join(parts, " "), maxOwnerStem)
	id := model.JobStem(jobID)
	switch {
	case prefix == "":
		return id
	case id == "":
		return prefix
	default:
		return prefix + "_" + id
	}
}

// ArchiveName is the download name First_Last_Resumes_Year.zip.
func ArchiveName(owner string, year int) string {
	parts := append(ownerParts(owner), "Resumes", strconv.Itoa(year))
	return util.FileStem(strings.Join(parts, " "), maxOwnerStem) + ".zip"
}
