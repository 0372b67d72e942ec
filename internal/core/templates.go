package core

// TemplateFileName is the download name of the upload template.
const TemplateFileName = "result_upload_template.csv"

// ResultTemplateCSV is the downloadable upload template.
const ResultTemplateCSV = `rollNumber,courseCode,marks,studentName,courseName,semester,examType,published
21CSC201J,21CSC301T,85,John Doe,Data Structures,3,Final,true
21CSC202J,21CSC301T,92,Jane Smith,Data Structures,3,Final,true
21CSC203J,21CSC302T,78,Mike Johnson,Algorithms,3,Final,true
21CSC204J,21MAT101T,88,Sarah Wilson,Mathematics,3,Final,true
21CSC205J,21PHY201T,95,David Brown,Physics,3,Final,true
21CSC206J,21CSC303T,82,Emily Davis,Database Systems,3,Final,true
21CSC207J,21MAT102T,76,Robert Wilson,Calculus,3,Final,true
21CSC208J,21CSC304T,89,Lisa Anderson,Web Development,3,Final,true
21CSC209J,21PHY202T,91,James Miller,Electronics,3,Final,true
21CSC210J,21CSC305T,84,Sophia Lee,Software Engineering,3,Final,true`
